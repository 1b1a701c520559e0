// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package localdata

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/bus"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/discussion"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/referral"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// Session is one logical execution context over the shared backend,
// the equivalent of a browser tab. It carries its own store handle, bus
// endpoint, and the referral and discussion services bound to them.
//
// A session hears other sessions' writes on the passive channel but
// never its own; its own publishes arrive on the active channel after
// the flush delay.
//
// Thread Safety: Safe for concurrent use.
type Session struct {
	contextID string
	store     *store.Store
	bus       *bus.Bus
	watcher   *bus.Watcher

	// Referrals manages per-scope referral request lifecycles.
	Referrals *referral.Manager

	// Discussions manages append-only comment logs.
	Discussions *discussion.Ledger
}

// NewSession opens a session with a generated context ID.
func (d *LocalData) NewSession() (*Session, error) {
	return d.NewSessionWithID(uuid.NewString())
}

// NewSessionWithID opens a session with an explicit context ID. Tests
// use fixed IDs so event origins are predictable.
func (d *LocalData) NewSessionWithID(contextID string) (*Session, error) {
	st := store.New(d.backend, contextID, d.logger)
	b := bus.New(bus.Config{
		Origin:     contextID,
		FlushDelay: d.cfg.Bus.FlushDelay(),
	}, d.logger)

	w := bus.NewWatcher(st, b, d.logger)
	w.Start(d.backend)

	if transport, err := d.newTransport(); err != nil {
		w.Close()
		_ = b.Close()
		return nil, err
	} else if transport != nil {
		if err := b.AttachTransport(transport); err != nil {
			w.Close()
			_ = b.Close()
			return nil, fmt.Errorf("attach bus transport: %w", err)
		}
	}

	return &Session{
		contextID:   contextID,
		store:       st,
		bus:         b,
		watcher:     w,
		Referrals:   referral.NewManager(st, b, d.logger),
		Discussions: discussion.NewLedger(st, b, d.logger),
	}, nil
}

// newTransport builds the configured cross-process transport, or nil
// for the in-process default.
func (d *LocalData) newTransport() (bus.Transport, error) {
	selector := d.cfg.Bus.Transport
	switch {
	case selector == "" || selector == "local":
		return nil, nil
	case strings.HasPrefix(selector, "file:"):
		return bus.NewFileTransport(strings.TrimPrefix(selector, "file:"), d.logger), nil
	case strings.HasPrefix(selector, "ws:"):
		return bus.NewWSTransport(selector, d.logger), nil
	default:
		return nil, fmt.Errorf("unknown bus transport %q", selector)
	}
}

// ContextID returns the session's context identifier.
func (s *Session) ContextID() string {
	return s.contextID
}

// Store exposes the session's store handle.
func (s *Session) Store() *store.Store {
	return s.store
}

// Bus exposes the session's bus endpoint.
func (s *Session) Bus() *bus.Bus {
	return s.bus
}

// Close tears down the session's watcher and bus. The shared backend
// stays open for other sessions.
func (s *Session) Close() error {
	s.watcher.Close()
	return s.bus.Close()
}
