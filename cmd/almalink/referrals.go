// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/referral"
)

var (
	referralsCmd = &cobra.Command{
		Use:   "referrals",
		Short: "Manage referral requests for a scope",
	}

	referralScope string

	referralsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List referral requests in the scope",
		RunE:  runReferralsList,
	}

	referralsApproveCmd = &cobra.Command{
		Use:   "approve [request-id]",
		Short: "Approve a pending referral request",
		Args:  cobra.ExactArgs(1),
		RunE:  runReferralsApprove,
	}

	referralsDeclineCmd = &cobra.Command{
		Use:   "decline [request-id]",
		Short: "Decline a pending referral request",
		Args:  cobra.ExactArgs(1),
		RunE:  runReferralsDecline,
	}

	submitName       string
	submitStudentID  string
	submitDepartment string
	submitYear       int
	submitScore      float64
	submitPosition   string
	submitCompany    string
	submitMessage    string

	referralsSubmitCmd = &cobra.Command{
		Use:   "submit",
		Short: "Submit a new referral request into the scope",
		RunE:  runReferralsSubmit,
	}
)

func init() {
	referralsCmd.PersistentFlags().StringVar(&referralScope, "scope", "default", "referral scope (cohort or board) the request belongs to")

	referralsCmd.AddCommand(referralsListCmd)
	referralsCmd.AddCommand(referralsApproveCmd)
	referralsCmd.AddCommand(referralsDeclineCmd)
	referralsCmd.AddCommand(referralsSubmitCmd)

	referralsSubmitCmd.Flags().StringVar(&submitName, "name", "", "student's display name (required)")
	referralsSubmitCmd.Flags().StringVar(&submitStudentID, "student-id", "", "student identifier (required)")
	referralsSubmitCmd.Flags().StringVar(&submitDepartment, "department", "", "student's department")
	referralsSubmitCmd.Flags().IntVar(&submitYear, "year", 0, "graduation year")
	referralsSubmitCmd.Flags().Float64Var(&submitScore, "score", 0, "academic score (0-10)")
	referralsSubmitCmd.Flags().StringVar(&submitPosition, "position", "", "requested position")
	referralsSubmitCmd.Flags().StringVar(&submitCompany, "company", "", "requested company")
	referralsSubmitCmd.Flags().StringVar(&submitMessage, "message", "", "note to the approving alumni")
	_ = referralsSubmitCmd.MarkFlagRequired("name")
	_ = referralsSubmitCmd.MarkFlagRequired("student-id")
}

func runReferralsList(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	requests := session.Referrals.List(context.Background(), referralScope)
	if len(requests) == 0 {
		fmt.Println("No referral requests in scope", referralScope)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEPT\tYEAR\tPOSITION\tCOMPANY\tSTATUS")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.StudentName, r.Department, r.Year, r.Position, r.Company, r.Status)
	}
	return w.Flush()
}

func runReferralsApprove(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := session.Referrals.Approve(context.Background(), args[0], referralScope); err != nil {
		return err
	}
	fmt.Printf("Approved referral request %s in scope %s\n", args[0], referralScope)
	return nil
}

func runReferralsDecline(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := session.Referrals.Decline(context.Background(), args[0], referralScope); err != nil {
		return err
	}
	fmt.Printf("Declined referral request %s in scope %s\n", args[0], referralScope)
	return nil
}

func runReferralsSubmit(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	req, err := session.Referrals.Submit(context.Background(), referral.Request{
		ScopeID:     referralScope,
		StudentID:   submitStudentID,
		StudentName: submitName,
		Department:  submitDepartment,
		Year:        submitYear,
		Score:       submitScore,
		Position:    submitPosition,
		Company:     submitCompany,
		Message:     submitMessage,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Submitted referral request %s in scope %s\n", req.ID, referralScope)
	return nil
}
