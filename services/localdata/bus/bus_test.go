// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

const testFlushDelay = 5 * time.Millisecond

// collector accumulates delivered events for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(evt Event) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) last() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

// TestPublishDeliversAfterFlushDelay verifies the explicit broadcast is
// delayed so antecedent writes are durable before subscribers re-read.
func TestPublishDeliversAfterFlushDelay(t *testing.T) {
	b := New(Config{Origin: "ctx-a", FlushDelay: 30 * time.Millisecond}, logging.Default())
	defer b.Close()

	var c collector
	unsub := b.Subscribe(TopicReferrals, c.handle)
	defer unsub()

	b.Publish(TopicReferrals, map[string]string{"scope_id": "1"})

	assert.Equal(t, 0, c.count(), "broadcast must not fire synchronously")
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)

	evt := c.last()
	assert.Equal(t, TopicReferrals, evt.Topic)
	assert.Equal(t, "ctx-a", evt.Origin)
	assert.NotEmpty(t, evt.ID)
}

// TestSubscribeTopicFilter verifies topic scoping and the match-all
// subscription.
func TestSubscribeTopicFilter(t *testing.T) {
	b := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	defer b.Close()

	var referrals, all collector
	defer b.Subscribe(TopicReferrals, referrals.handle)()
	defer b.Subscribe("", all.handle)()

	b.Publish(TopicReferrals, nil)
	b.Publish(TopicDiscussions, nil)

	require.Eventually(t, func() bool { return all.count() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, referrals.count())
}

// TestUnsubscribeReleasesHandler verifies the scoped-acquisition contract.
func TestUnsubscribeReleasesHandler(t *testing.T) {
	b := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	defer b.Close()

	var c collector
	unsub := b.Subscribe(TopicReferrals, c.handle)

	b.Publish(TopicReferrals, nil)
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)

	unsub()
	b.Publish(TopicReferrals, nil)
	time.Sleep(5 * testFlushDelay)
	assert.Equal(t, 1, c.count(), "unsubscribed handler must not fire")
}

// TestPanickingHandlerDoesNotStarveOthers verifies handler isolation.
func TestPanickingHandlerDoesNotStarveOthers(t *testing.T) {
	b := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	defer b.Close()

	defer b.Subscribe(TopicReferrals, func(Event) { panic("bad handler") })()
	var c collector
	defer b.Subscribe(TopicReferrals, c.handle)()

	b.Publish(TopicReferrals, nil)
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
}

// TestTopicForKey verifies storage-key to topic routing.
func TestTopicForKey(t *testing.T) {
	assert.Equal(t, TopicReferrals, TopicForKey(store.ReferralKey("1")))
	assert.Equal(t, TopicDiscussions, TopicForKey(store.CommentsKey("9")))
	assert.Equal(t, TopicDiscussions, TopicForKey(store.DiscussionsKey))
	assert.Equal(t, TopicStore, TopicForKey(store.PrefsKey("search")))
}

// TestWatcherPassiveChannel verifies the storage-layer notification: the
// writing context hears nothing, every other context hears the change.
func TestWatcherPassiveChannel(t *testing.T) {
	backend, err := store.OpenInMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	storeA := store.New(backend, "ctx-a", logging.Default())
	storeB := store.New(backend, "ctx-b", logging.Default())

	busA := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	busB := New(Config{Origin: "ctx-b", FlushDelay: testFlushDelay}, logging.Default())
	defer busA.Close()
	defer busB.Close()

	watcherA := NewWatcher(storeA, busA, logging.Default())
	watcherB := NewWatcher(storeB, busB, logging.Default())
	watcherA.Start(backend)
	watcherB.Start(backend)
	defer watcherA.Close()
	defer watcherB.Close()

	var heardA, heardB collector
	defer busA.Subscribe(TopicReferrals, heardA.handle)()
	defer busB.Subscribe(TopicReferrals, heardB.handle)()

	// Give the backend subscriptions a moment to register.
	time.Sleep(50 * time.Millisecond)

	key := store.ReferralKey("1")
	require.NoError(t, storeA.Set(context.Background(), key, []string{"doc"}))

	require.Eventually(t, func() bool { return heardB.count() == 1 }, time.Second, time.Millisecond)
	evt := heardB.last()
	assert.Equal(t, "", evt.Origin, "passive events carry no context origin")
	change, ok := evt.Data.(StoreChange)
	require.True(t, ok)
	assert.Equal(t, key, change.Key)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, heardA.count(), "originating context must not hear its own write")
}

// TestFileTransportFansOut verifies two processes' buses exchange events
// through the spool file and self-origin frames are dropped.
func TestFileTransportFansOut(t *testing.T) {
	spool := t.TempDir() + "/events.spool"

	busA := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	busB := New(Config{Origin: "ctx-b", FlushDelay: testFlushDelay}, logging.Default())
	defer busA.Close()
	defer busB.Close()

	require.NoError(t, busA.AttachTransport(NewFileTransport(spool, logging.Default())))
	require.NoError(t, busB.AttachTransport(NewFileTransport(spool, logging.Default())))

	var heardB collector
	defer busB.Subscribe(TopicDiscussions, heardB.handle)()

	busA.Publish(TopicDiscussions, map[string]string{"discussion_id": "9"})

	require.Eventually(t, func() bool { return heardB.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	evt := heardB.last()
	assert.Equal(t, "ctx-a", evt.Origin)
	assert.Equal(t, TopicDiscussions, evt.Topic)
}
