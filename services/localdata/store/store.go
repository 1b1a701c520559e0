// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

var tracer = otel.Tracer("github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store")

// Store is one execution context's handle on the shared backend.
//
// Description:
//
//	Each logical context (a browser tab in the original portal) holds its
//	own Store. All handles share one Backend; a handle additionally
//	remembers the values it wrote itself, so the passive bus channel can
//	skip notifying a context about its own writes, mirroring the browser
//	storage-event contract.
//
//	A Store constructed with NewEphemeral has no backend at all. Reads
//	report absent, writes are non-fatal no-ops, and GetOrSeed returns the
//	factory value without persisting it. This covers execution contexts
//	without durable storage (server-side rendering).
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	backend   *Backend
	contextID string
	logger    *logging.Logger

	seedGroup singleflight.Group

	mu      sync.Mutex
	written map[string]uint64
}

// New creates a Store handle for one context over the shared backend.
func New(backend *Backend, contextID string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		backend:   backend,
		contextID: contextID,
		logger:    logger.With("component", "store", "context_id", contextID),
		written:   make(map[string]uint64),
	}
}

// NewEphemeral creates a Store without durable storage.
func NewEphemeral(contextID string, logger *logging.Logger) *Store {
	s := New(nil, contextID, logger)
	return s
}

// ContextID returns the owning context's ID.
func (s *Store) ContextID() string {
	return s.contextID
}

// Ephemeral reports whether this store has no durable backend.
func (s *Store) Ephemeral() bool {
	return s.backend == nil
}

// Get reads the document at key into out.
//
// Description:
//
//	Decodes the stored JSON into out. A missing key reports found=false.
//	A corrupted stored value is a recoverable condition: it is logged,
//	discarded from the backend, counted, and reported as absent; it is
//	never surfaced as an error to the caller.
//
// Outputs:
//
//	bool - True if a valid document was decoded into out.
//	error - Non-nil only for backend I/O failures or cancelled contexts.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	ctx, span := tracer.Start(ctx, "store.Get")
	span.SetAttributes(attribute.String("store.key", key))
	defer span.End()
	defer observe("get", time.Now())

	if s.backend == nil {
		storeOps.WithLabelValues("get", "absent").Inc()
		return false, nil
	}

	var raw []byte
	err := s.backend.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		storeOps.WithLabelValues("get", "absent").Inc()
		return false, nil
	}
	if err != nil {
		storeOps.WithLabelValues("get", "error").Inc()
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.recoverCorruption(ctx, key, err)
		return false, nil
	}

	storeOps.WithLabelValues("get", "ok").Inc()
	return true, nil
}

// Set writes the document at key as one atomic commit.
//
// Description:
//
//	Marshals doc and commits it in a single transaction: readers observe
//	the previous document or this one, never a partial write. On an
//	ephemeral store this is a non-fatal no-op.
func (s *Store) Set(ctx context.Context, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		storeOps.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.setRaw(ctx, key, data)
}

// GetOrSeed reads key into out, seeding it from factory exactly once.
//
// Description:
//
//	If a document (even a user-mutated one) already exists at key, it
//	is returned untouched; the factory never clobbers prior state. Only
//	when the key has never been populated (or held a corrupt value that
//	was discarded) is factory() invoked, persisted, and returned.
//
//	Concurrent GetOrSeed calls on the same handle collapse to a single
//	seed via singleflight. On an ephemeral store the factory value is
//	returned without any write.
//
// Inputs:
//
//	factory - Pure function producing the default document. Injected per
//	  call so tests can use distinct fixtures without global state.
func (s *Store) GetOrSeed(ctx context.Context, key string, out any, factory func() any) error {
	ctx, span := tracer.Start(ctx, "store.GetOrSeed")
	span.SetAttributes(attribute.String("store.key", key))
	defer span.End()
	defer observe("get_or_seed", time.Now())

	if s.backend == nil {
		data, err := json.Marshal(factory())
		if err != nil {
			return fmt.Errorf("encode default for %s: %w", key, err)
		}
		return json.Unmarshal(data, out)
	}

	v, err, _ := s.seedGroup.Do(key, func() (any, error) {
		var raw json.RawMessage
		found, err := s.Get(ctx, key, &raw)
		if err != nil {
			return nil, err
		}
		if found {
			return []byte(raw), nil
		}

		data, err := json.Marshal(factory())
		if err != nil {
			return nil, fmt.Errorf("encode default for %s: %w", key, err)
		}
		if err := s.setRaw(ctx, key, data); err != nil {
			return nil, err
		}
		storeSeeds.Inc()
		s.logger.Info("seeded default document", "key", key)
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}

// Delete removes the document at key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.backend == nil {
		return nil
	}
	defer observe("delete", time.Now())
	err := s.backend.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		storeOps.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}
	storeOps.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Keys lists all keys under prefix, in lexicographic order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.backend == nil {
		return nil, nil
	}
	var keys []string
	err := s.backend.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys %s*: %w", prefix, err)
	}
	return keys, nil
}

// OwnsWrite reports whether value at key matches this handle's most
// recent write there. The passive bus channel uses it to suppress
// same-context echoes; an equal value from another context carries no new
// information either, so suppressing it is harmless.
func (s *Store) OwnsWrite(key string, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.written[key]
	return ok && h == hashValue(value)
}

// setRaw commits pre-encoded bytes and records the self-write marker.
func (s *Store) setRaw(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "store.Set")
	span.SetAttributes(attribute.String("store.key", key), attribute.Int("store.bytes", len(data)))
	defer span.End()
	defer observe("set", time.Now())

	if s.backend == nil {
		s.logger.Debug("ephemeral store, write dropped", "key", key)
		return nil
	}

	err := s.backend.update(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		storeOps.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}

	s.mu.Lock()
	s.written[key] = hashValue(data)
	s.mu.Unlock()

	storeOps.WithLabelValues("set", "ok").Inc()
	return nil
}

// recoverCorruption discards an undecodable value so the next read (or
// GetOrSeed) starts clean. Best effort: a failed delete still reports the
// key absent.
func (s *Store) recoverCorruption(ctx context.Context, key string, cause error) {
	storeCorruptions.Inc()
	s.logger.Warn("corrupt value discarded",
		"key", key,
		"error", cause.Error(),
	)
	if err := s.backend.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		s.logger.Warn("corrupt value delete failed", "key", key, "error", err.Error())
	}
}

func hashValue(value []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(value)
	return h.Sum64()
}

func observe(op string, start time.Time) {
	storeOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
