// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store implements the persistent entity store for the AlmaLink
// local-first data layer.
//
// The store is a durable key→JSON-document map backed by BadgerDB. One
// Backend is the shared durable truth (the moral equivalent of the
// browser's localStorage); each logical execution context ("tab") opens
// its own *Store handle over it. Handles track their own writes so the
// event bus can suppress echoing a context's write back to itself.
//
// Documents are whole-collection JSON values written atomically: a reader
// observes either the previous document or the new one, never a partial
// write. There is no cross-context locking or compare-and-swap; the last
// committed write to a key wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

// BackendConfig holds configuration for the shared durable backend.
type BackendConfig struct {
	// Path is the directory for BadgerDB files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Used by
	// tests and ephemeral tooling.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, BadgerDB's
	// logging is disabled.
	Logger *logging.Logger

	// GCInterval is how often to run value log garbage collection.
	// 0 disables GC (default for in-memory backends).
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC
	// rewrites a value log file.
	GCDiscardRatio float64
}

// DefaultBackendConfig returns production defaults: synchronous writes,
// 5-minute GC interval, 50% discard ratio.
func DefaultBackendConfig(path string) BackendConfig {
	return BackendConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBackendConfig returns a configuration for tests: in-memory,
// no sync, no GC.
func InMemoryBackendConfig() BackendConfig {
	return BackendConfig{InMemory: true}
}

// badgerLogger adapts slog to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Backend is the shared durable storage all contexts write through.
//
// Thread Safety: Backend is safe for concurrent use.
type Backend struct {
	db       *badger.DB
	inMemory bool
	path     string

	gcStop chan struct{}
	gcDone chan struct{}
	logger *logging.Logger
}

// OpenBackend opens the shared durable backend.
//
// Description:
//
//	Opens a BadgerDB at cfg.Path (creating the directory if needed), or
//	in memory when cfg.InMemory is set. Starts the periodic value log GC
//	runner when GCInterval is positive.
//
// Outputs:
//
//	*Backend - The opened backend. Caller must Close() when done.
//	error - Non-nil if the path is missing or the database cannot open.
//
// Thread Safety: The returned Backend is safe for concurrent use.
func OpenBackend(cfg BackendConfig) (*Backend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent backend")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create backend directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Slog()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	b := &Backend{
		db:       db,
		inMemory: cfg.InMemory,
		path:     cfg.Path,
		logger:   cfg.Logger,
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.gcStop = make(chan struct{})
		b.gcDone = make(chan struct{})
		go b.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return b, nil
}

// OpenInMemoryBackend opens an in-memory backend for tests.
func OpenInMemoryBackend() (*Backend, error) {
	return OpenBackend(InMemoryBackendConfig())
}

// DB exposes the underlying BadgerDB for components that need raw access
// (the event bus subscribes to key changes through it).
func (b *Backend) DB() *badger.DB {
	return b.db
}

// InMemory reports whether this backend is in-memory.
func (b *Backend) InMemory() bool {
	return b.inMemory
}

// Path returns the backend directory, or "" for in-memory backends.
func (b *Backend) Path() string {
	return b.path
}

// Sync flushes pending writes to disk. No-op for in-memory backends.
func (b *Backend) Sync() error {
	if b.inMemory {
		return nil
	}
	return b.db.Sync()
}

// Close stops GC and closes the database. Calling it again is a no-op.
func (b *Backend) Close() error {
	if b.gcStop != nil {
		close(b.gcStop)
		<-b.gcDone
		b.gcStop = nil
	}
	return b.db.Close()
}

func (b *Backend) runGC(interval time.Duration, ratio float64) {
	defer close(b.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.gcStop:
			return
		case <-ticker.C:
			err := b.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				if b.logger != nil {
					b.logger.Warn("value log GC error", "error", err.Error())
				}
			}
		}
	}
}

// view runs a read-only transaction, checking ctx first.
func (b *Backend) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return b.db.View(fn)
}

// update runs a read-write transaction, checking ctx first.
func (b *Backend) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return b.db.Update(fn)
}
