// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// Watcher is the passive delivery channel: the storage layer's own change
// notification.
//
// Description:
//
//	Watcher subscribes to key changes on the shared backend and delivers
//	them to this context's Bus. Writes the owning context made itself are
//	suppressed (matched through the store's self-write tracking), so a
//	context never hears its own write on this channel, the same contract
//	the browser storage event gives the portal UI.
//
// Thread Safety: Watcher is safe for concurrent use.
type Watcher struct {
	st     *store.Store
	bus    *Bus
	logger *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a passive watcher for one context.
func NewWatcher(st *store.Store, b *Bus, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		st:     st,
		bus:    b,
		logger: logger.With("component", "bus_watcher", "context_id", st.ContextID()),
	}
}

// Start begins watching the backend for key changes. It returns
// immediately; delivery happens on a background goroutine until Close.
// Ephemeral stores have no backend to watch; Start is then a no-op.
func (w *Watcher) Start(backend *store.Backend) {
	if backend == nil || w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		// Empty prefix matches every key.
		matches := []pb.Match{{Prefix: nil}}
		err := backend.DB().Subscribe(ctx, w.onChanges, matches)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("backend subscription ended", "error", err.Error())
		}
	}()
}

// Close stops the watcher and waits for the delivery goroutine to exit.
// Safe to call multiple times.
func (w *Watcher) Close() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
}

func (w *Watcher) onChanges(list *badger.KVList) error {
	for _, kv := range list.Kv {
		key := string(kv.Key)

		if w.st.OwnsWrite(key, kv.Value) {
			busSuppressed.Inc()
			continue
		}

		w.bus.Deliver(Event{
			ID:        uuid.NewString(),
			Topic:     TopicForKey(key),
			Origin:    "", // storage layer, not a context
			Timestamp: time.Now(),
			Data:      StoreChange{Key: key},
		}, "passive")
	}
	return nil
}
