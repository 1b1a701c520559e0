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

	"github.com/spf13/cobra"
)

var (
	commentsCmd = &cobra.Command{
		Use:   "comments",
		Short: "Manage discussion comments",
	}

	commentAuthor  string
	commentMessage string

	commentsAddCmd = &cobra.Command{
		Use:   "add [discussion-id]",
		Short: "Append a comment to a discussion",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommentsAdd,
	}

	commentsListCmd = &cobra.Command{
		Use:   "list [discussion-id]",
		Short: "List a discussion's comments in post order",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommentsList,
	}

	commentsLikeCmd = &cobra.Command{
		Use:   "like [discussion-id] [comment-id]",
		Short: "Like a comment",
		Args:  cobra.ExactArgs(2),
		RunE:  runCommentsLike,
	}
)

func init() {
	commentsCmd.AddCommand(commentsAddCmd)
	commentsCmd.AddCommand(commentsListCmd)
	commentsCmd.AddCommand(commentsLikeCmd)

	commentsAddCmd.Flags().StringVar(&commentAuthor, "author", "", "comment author (required)")
	commentsAddCmd.Flags().StringVar(&commentMessage, "message", "", "comment text (required)")
	_ = commentsAddCmd.MarkFlagRequired("author")
	_ = commentsAddCmd.MarkFlagRequired("message")
}

func runCommentsAdd(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	comment, err := session.Discussions.AddComment(context.Background(), args[0], commentAuthor, commentMessage)
	if err != nil {
		return err
	}
	fmt.Printf("Added comment %s to discussion %s\n", comment.ID, args[0])
	return nil
}

func runCommentsList(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	comments := session.Discussions.GetComments(ctx, args[0])
	if len(comments) == 0 {
		fmt.Println("No comments in discussion", args[0])
		return nil
	}

	fmt.Printf("Discussion %s (%d replies)\n", args[0], session.Discussions.ReplyCount(ctx, args[0]))
	for _, c := range comments {
		fmt.Printf("  [%s] %s (%d likes) at %s\n      %s\n",
			c.ID, c.Author, c.Likes, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
	}
	return nil
}

func runCommentsLike(cmd *cobra.Command, args []string) error {
	session, _, cleanup, err := openLayer()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := session.Discussions.LikeComment(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Liked comment %s in discussion %s\n", args[1], args[0])
	return nil
}
