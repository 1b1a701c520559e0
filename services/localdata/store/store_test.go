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
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

type fixtureDoc struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := OpenInMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

// TestRoundTrip verifies serialization fidelity for nested documents.
func TestRoundTrip(t *testing.T) {
	backend := newTestBackend(t)
	s := New(backend, "ctx-a", logging.Default())
	ctx := context.Background()

	in := []fixtureDoc{
		{ID: "1", Status: "Pending", Tags: []string{"cs", "ml"}, CreatedAt: "2026-01-15T10:30:00Z"},
		{ID: "2", Status: "Approved", Tags: nil, CreatedAt: "2026-02-01T08:00:00Z"},
	}
	require.NoError(t, s.Set(ctx, ReferralKey("7"), in))

	var out []fixtureDoc
	found, err := s.Get(ctx, ReferralKey("7"), &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

// TestGetAbsent verifies a never-written key reports absent without error.
func TestGetAbsent(t *testing.T) {
	backend := newTestBackend(t)
	s := New(backend, "ctx-a", logging.Default())

	var out []fixtureDoc
	found, err := s.Get(context.Background(), "never_written", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestCorruptValueRecovered verifies invalid stored JSON is discarded and
// reported absent, never raised to the caller.
func TestCorruptValueRecovered(t *testing.T) {
	backend := newTestBackend(t)
	logger, capture := logging.NewCapture()
	s := New(backend, "ctx-a", logger)
	ctx := context.Background()

	// Corrupt the value behind the store's back.
	key := CommentsKey("42")
	require.NoError(t, backend.DB().Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte("{not json"))
	}))

	var out []fixtureDoc
	found, err := s.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, capture.Contains("corrupt value discarded"))

	// The corrupt value is gone; reseeding starts clean.
	var seeded []fixtureDoc
	err = s.GetOrSeed(ctx, key, &seeded, func() any {
		return []fixtureDoc{{ID: "fresh", Status: "Pending"}}
	})
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	assert.Equal(t, "fresh", seeded[0].ID)
}

// TestGetOrSeedSeedsExactlyOnce verifies the factory runs only when the
// key has never been populated, and never clobbers a mutated document.
func TestGetOrSeedSeedsExactlyOnce(t *testing.T) {
	backend := newTestBackend(t)
	s := New(backend, "ctx-a", logging.Default())
	ctx := context.Background()
	key := ReferralKey("1")

	calls := 0
	factory := func() any {
		calls++
		return []fixtureDoc{{ID: "a", Status: "Pending"}, {ID: "b", Status: "Pending"}}
	}

	var first []fixtureDoc
	require.NoError(t, s.GetOrSeed(ctx, key, &first, factory))
	require.Len(t, first, 2)
	assert.Equal(t, 1, calls)

	// Mutate the stored document as a user action would.
	first[0].Status = "Approved"
	require.NoError(t, s.Set(ctx, key, first))

	var second []fixtureDoc
	require.NoError(t, s.GetOrSeed(ctx, key, &second, factory))
	assert.Equal(t, 1, calls, "factory must not run again")
	assert.Equal(t, "Approved", second[0].Status, "seed must not clobber user mutation")
	assert.Len(t, second, 2, "no duplicate records on repeat calls")
}

// TestEphemeralStore verifies contexts without durable storage get the
// factory value without any write, and writes are non-fatal no-ops.
func TestEphemeralStore(t *testing.T) {
	s := NewEphemeral("ssr", logging.Default())
	ctx := context.Background()

	var out []fixtureDoc
	require.NoError(t, s.GetOrSeed(ctx, ReferralKey("1"), &out, func() any {
		return []fixtureDoc{{ID: "x", Status: "Pending"}}
	}))
	require.Len(t, out, 1)

	require.NoError(t, s.Set(ctx, ReferralKey("1"), out))

	found, err := s.Get(ctx, ReferralKey("1"), &out)
	require.NoError(t, err)
	assert.False(t, found, "ephemeral store never persists")
}

// TestOwnsWrite verifies self-write tracking across two handles on one
// backend.
func TestOwnsWrite(t *testing.T) {
	backend := newTestBackend(t)
	a := New(backend, "ctx-a", logging.Default())
	b := New(backend, "ctx-b", logging.Default())
	ctx := context.Background()
	key := ReferralKey("1")

	docA := []fixtureDoc{{ID: "1", Status: "Approved"}}
	require.NoError(t, a.Set(ctx, key, docA))

	rawA, err := json.Marshal(docA)
	require.NoError(t, err)
	assert.True(t, a.OwnsWrite(key, rawA))
	assert.False(t, b.OwnsWrite(key, rawA))

	docB := []fixtureDoc{{ID: "1", Status: "Rejected"}}
	require.NoError(t, b.Set(ctx, key, docB))

	rawB, err := json.Marshal(docB)
	require.NoError(t, err)
	assert.False(t, a.OwnsWrite(key, rawB))
	assert.True(t, b.OwnsWrite(key, rawB))
}

// TestKeysPrefix verifies prefix listing.
func TestKeysPrefix(t *testing.T) {
	backend := newTestBackend(t)
	s := New(backend, "ctx-a", logging.Default())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, ReferralKey("1"), []fixtureDoc{}))
	require.NoError(t, s.Set(ctx, ReferralKey("2"), []fixtureDoc{}))
	require.NoError(t, s.Set(ctx, CommentsKey("9"), []fixtureDoc{}))

	keys, err := s.Keys(ctx, ReferralPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{ReferralKey("1"), ReferralKey("2")}, keys)
}

// TestKeyHelpers verifies the storage key contract helpers.
func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "referralRequests_17", ReferralKey("17"))
	assert.Equal(t, "comments_abc", CommentsKey("abc"))
	assert.Equal(t, "search_prefs", PrefsKey("search"))
	assert.Equal(t, "17", ScopeFromKey("referralRequests_17"))
	assert.Equal(t, "", ScopeFromKey("comments_17"))
	assert.Equal(t, "abc", DiscussionFromKey("comments_abc"))
	assert.Equal(t, "", DiscussionFromKey("unifiedDiscussions"))
}

// TestDelete verifies removal and that deleting a missing key is not an
// error.
func TestDelete(t *testing.T) {
	backend := newTestBackend(t)
	s := New(backend, "ctx-a", logging.Default())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "search_prefs", map[string]any{"sort": "recent"}))
	require.NoError(t, s.Delete(ctx, "search_prefs"))

	var out map[string]any
	found, err := s.Get(ctx, "search_prefs", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Delete(ctx, "search_prefs"))
}
