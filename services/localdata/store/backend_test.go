// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

// TestPersistentBackendSurvivesReopen verifies documents written before
// Close are readable after a fresh open of the same directory.
func TestPersistentBackendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(DefaultBackendConfig(dir))
	require.NoError(t, err)

	s := New(backend, "ctx-a", logging.Default())
	require.NoError(t, s.Set(ctx, ReferralKey("1"), []fixtureDoc{{ID: "1", Status: "Approved"}}))
	require.NoError(t, backend.Close())

	reopened, err := OpenBackend(DefaultBackendConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	var out []fixtureDoc
	found, err := New(reopened, "ctx-b", logging.Default()).Get(ctx, ReferralKey("1"), &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Approved", out[0].Status)
}

func TestOpenBackendRequiresPath(t *testing.T) {
	_, err := OpenBackend(BackendConfig{})
	require.Error(t, err)
}

func TestInMemoryBackendReportsMode(t *testing.T) {
	backend := newTestBackend(t)
	assert.True(t, backend.InMemory())
	assert.Empty(t, backend.Path())
	require.NoError(t, backend.Sync())
}

func TestBackendCloseIsIdempotent(t *testing.T) {
	backend, err := OpenInMemoryBackend()
	require.NoError(t, err)
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())
}
