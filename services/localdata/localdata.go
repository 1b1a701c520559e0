// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package localdata assembles the client-resident data layer: a durable
// entity store, a cross-context event bus, and the referral and
// discussion services built on top of them. One LocalData owns the
// shared storage backend; each logical UI context opens its own Session
// against it.
package localdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/config"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// LocalData is the process-wide root of the data layer. It owns the
// storage backend shared by every Session.
//
// Thread Safety: Safe for concurrent use. Sessions may be created and
// closed from any goroutine.
type LocalData struct {
	cfg     config.Config
	backend *store.Backend
	logger  *logging.Logger
}

// Open initializes the data layer from cfg.
//
// # Inputs
//
//   - cfg: validated configuration (see config.Load).
//   - logger: destination for structured logs. Must not be nil.
//
// # Outputs
//
//   - *LocalData: the opened data layer. Call Close when done.
//   - error: non-nil if the storage backend cannot be opened.
func Open(cfg config.Config, logger *logging.Logger) (*LocalData, error) {
	var backendCfg store.BackendConfig
	if cfg.Storage.InMemory {
		backendCfg = store.InMemoryBackendConfig()
	} else {
		dir, err := expandPath(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		backendCfg = store.DefaultBackendConfig(dir)
	}
	backendCfg.Logger = logger

	backend, err := store.OpenBackend(backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}

	return &LocalData{
		cfg:     cfg,
		backend: backend,
		logger:  logger,
	}, nil
}

// Backend exposes the shared storage backend.
func (d *LocalData) Backend() *store.Backend {
	return d.backend
}

// Close releases the storage backend. Sessions must be closed first.
func (d *LocalData) Close() error {
	return d.backend.Close()
}

// expandPath resolves a leading "~/" against the user's home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
