// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package referral implements the referral request lifecycle for the
// AlmaLink local-first data layer.
//
// A scope (one alumni recipient's inbox) owns a collection of referral
// requests persisted under one storage key. The status state machine is
// Pending → Approved | Rejected. Requests are never deleted; they are
// kept for history.
//
// Cross-context conflict policy is last-write-wins: every mutator
// re-reads the full collection, changes exactly one record, and writes
// the full collection back. Two contexts racing on the same scope can
// still lose one update; strong consistency is an explicit non-goal of
// this layer.
package referral

import (
	"errors"
	"time"
)

var (
	// ErrRequestNotFound is returned when a transition names a request
	// ID absent from the scope's collection.
	ErrRequestNotFound = errors.New("referral request not found")

	// ErrInvalidRequest is returned when a submitted request fails
	// validation.
	ErrInvalidRequest = errors.New("invalid referral request")
)

// Status is a referral request's lifecycle state.
type Status string

const (
	// StatusPending is the initial state of every request.
	StatusPending Status = "Pending"

	// StatusApproved is the intended terminal acceptance state.
	StatusApproved Status = "Approved"

	// StatusRejected is the intended terminal refusal state. Whether a
	// Rejected request may legitimately transition back to Approved is
	// an unresolved product question; no guard is enforced here, and a
	// later transition overwrites the status.
	StatusRejected Status = "Rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Request is one student's referral ask toward a receiving alumni scope.
// Field names in JSON are the persisted storage contract shared with the
// portal UI.
type Request struct {
	ID          string    `json:"id"`
	ScopeID     string    `json:"scopeId"`
	StudentID   string    `json:"studentId" validate:"required"`
	StudentName string    `json:"name" validate:"required"`
	Department  string    `json:"department"`
	Year        int       `json:"year" validate:"gte=0,lte=9999"`
	Score       float64   `json:"score" validate:"gte=0,lte=10"`
	Position    string    `json:"requestedPosition" validate:"required"`
	Company     string    `json:"requestedCompany" validate:"required"`
	Message     string    `json:"message"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Change is the advisory bus payload for referral mutations. Handlers
// re-read the scope's collection; this is a cue, not a delta.
type Change struct {
	ScopeID   string `json:"scopeId"`
	Action    string `json:"action"`
	RequestID string `json:"requestId"`
}

// Actions carried in Change payloads.
const (
	ActionApprove = "approve"
	ActionDecline = "decline"
	ActionSubmit  = "submit"
)

// ApplyTransition returns a copy of list with the matching request's
// status replaced, and whether a match was found.
//
// Description:
//
//	This is the single transition function shared by the manager and by
//	optimistic UI callers mutating their in-memory copy, so both paths
//	converge to the same final document for the same operation history.
//	No terminal-state guard exists: transitioning an already-Rejected
//	record overwrites its status (see StatusRejected).
func ApplyTransition(list []Request, requestID string, status Status) ([]Request, bool) {
	out := make([]Request, len(list))
	copy(out, list)

	for i := range out {
		if out[i].ID == requestID {
			out[i].Status = status
			return out, true
		}
	}
	return out, false
}
