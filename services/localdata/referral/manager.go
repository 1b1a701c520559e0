// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/bus"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// Manager owns the referral lifecycle for one execution context.
//
// Description:
//
//	Every mutator follows the documented race mitigation: re-read the
//	full collection immediately before mutating, change exactly one
//	record, write the full collection back, then publish the change.
//	The window between two contexts' read-modify-write cycles is
//	narrowed, not eliminated; the last committed write wins.
//
// Thread Safety: Manager is safe for concurrent use.
type Manager struct {
	st       *store.Store
	bus      *bus.Bus
	fixtures func(scopeID string) []Request
	validate *validator.Validate
	logger   *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithFixtures overrides the default seed factory. Tests inject distinct
// fixtures per scenario without any shared global state.
func WithFixtures(fixtures func(scopeID string) []Request) Option {
	return func(m *Manager) {
		m.fixtures = fixtures
	}
}

// NewManager creates a referral lifecycle manager.
func NewManager(st *store.Store, b *bus.Bus, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	m := &Manager{
		st:       st,
		bus:      b,
		fixtures: DefaultFixtures,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "referral_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns the scope's referral collection, seeding the default
// fixture set only if the scope has never been populated.
//
// Description:
//
//	Store failures never escape a UI event-handler boundary: on a
//	backend error List logs it and degrades to the fixture set rather
//	than failing the render.
func (m *Manager) List(ctx context.Context, scopeID string) []Request {
	var list []Request
	err := m.st.GetOrSeed(ctx, store.ReferralKey(scopeID), &list, func() any {
		return m.fixtures(scopeID)
	})
	if err != nil {
		m.logger.Error("list degraded to defaults", "scope_id", scopeID, "error", err.Error())
		return m.fixtures(scopeID)
	}
	return list
}

// Approve transitions one request to Approved and broadcasts the change.
// Approving an already-Approved request rewrites the identical document
// (a no-op by content).
func (m *Manager) Approve(ctx context.Context, requestID, scopeID string) error {
	return m.transition(ctx, requestID, scopeID, StatusApproved, ActionApprove)
}

// Decline transitions one request to Rejected and broadcasts the change.
func (m *Manager) Decline(ctx context.Context, requestID, scopeID string) error {
	return m.transition(ctx, requestID, scopeID, StatusRejected, ActionDecline)
}

// Submit records a new referral request into its scope's collection.
// This is the entry point used by the submission flow; requests enter
// Pending and are never deleted afterward.
func (m *Manager) Submit(ctx context.Context, req Request) (Request, error) {
	if req.Status == "" {
		req.Status = StatusPending
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: new requests must be Pending", ErrInvalidRequest)
	}
	if err := m.validate.Struct(req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	key := store.ReferralKey(req.ScopeID)
	var list []Request
	if _, err := m.st.Get(ctx, key, &list); err != nil {
		return Request{}, fmt.Errorf("submit %s: %w", req.ID, err)
	}
	for _, existing := range list {
		if existing.ID == req.ID {
			return Request{}, fmt.Errorf("%w: duplicate id %s in scope %s", ErrInvalidRequest, req.ID, req.ScopeID)
		}
	}
	list = append(list, req)

	if err := m.st.Set(ctx, key, list); err != nil {
		return Request{}, fmt.Errorf("submit %s: %w", req.ID, err)
	}

	m.publish(req.ScopeID, ActionSubmit, req.ID)
	m.logger.Info("request submitted", "scope_id", req.ScopeID, "request_id", req.ID)
	return req, nil
}

// transition applies the read-full / change-one / write-full cycle.
// All-or-nothing: either the whole collection is rewritten or nothing is.
func (m *Manager) transition(ctx context.Context, requestID, scopeID string, status Status, action string) error {
	key := store.ReferralKey(scopeID)

	var list []Request
	err := m.st.GetOrSeed(ctx, key, &list, func() any {
		return m.fixtures(scopeID)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, requestID, err)
	}

	next, found := ApplyTransition(list, requestID, status)
	if !found {
		return fmt.Errorf("%s %s in scope %s: %w", action, requestID, scopeID, ErrRequestNotFound)
	}

	if err := m.st.Set(ctx, key, next); err != nil {
		return fmt.Errorf("%s %s: %w", action, requestID, err)
	}

	m.publish(scopeID, action, requestID)
	m.logger.Info("request transitioned",
		"scope_id", scopeID,
		"request_id", requestID,
		"status", string(status),
	)
	return nil
}

func (m *Manager) publish(scopeID, action, requestID string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(bus.TopicReferrals, Change{
		ScopeID:   scopeID,
		Action:    action,
		RequestID: requestID,
	})
}

// IsNotFound reports whether err is the unknown-request condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}
