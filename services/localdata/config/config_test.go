// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "almalink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 75*time.Millisecond, cfg.Bus.FlushDelay())
	assert.Equal(t, 5*time.Second, cfg.Remote.AttemptTimeout())
	assert.Equal(t, time.Second, cfg.Remote.BackoffDelay())
	assert.Equal(t, 2, cfg.Remote.MaxRetries)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  in_memory: true
bus:
  flush_delay_ms: 50
remote:
  base_url: http://search.internal:9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, 50, cfg.Bus.FlushDelayMS)
	assert.Equal(t, "http://search.internal:9100", cfg.Remote.BaseURL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "local", cfg.Bus.Transport)
	assert.Equal(t, 5000, cfg.Remote.AttemptTimeoutMS)
}

func TestLoadAcceptsJSON(t *testing.T) {
	path := writeConfig(t, `{"bus": {"flush_delay_ms": 90}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Bus.FlushDelayMS)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Remote.BaseURL, cfg.Remote.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: http://from-file:1
`)
	t.Setenv("ALMALINK_REMOTE_URL", "http://from-env:2")
	t.Setenv("ALMALINK_FLUSH_DELAY_MS", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:2", cfg.Remote.BaseURL)
	assert.Equal(t, 60, cfg.Bus.FlushDelayMS)
}

func TestValidateRejectsBadTransport(t *testing.T) {
	cfg := Default()
	cfg.Bus.Transport = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg.Bus.Transport = "file:"
	require.Error(t, cfg.Validate())

	cfg.Bus.Transport = "file:/tmp/bus.spool"
	require.NoError(t, cfg.Validate())

	cfg.Bus.Transport = "ws://localhost:9000/bus"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cfg := Default()
	cfg.Remote.MaxRetries = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Remote.AttemptTimeoutMS = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Dir = ""
	cfg.Storage.InMemory = false
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.yaml")
	require.NoError(t, os.WriteFile(path, make([]byte, maxConfigSize+1), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := writeConfig(t, "{{{ not a config")
	_, err := Load(path)
	require.Error(t, err)
}
