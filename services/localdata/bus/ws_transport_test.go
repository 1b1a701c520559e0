// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

// testRelay is a minimal fan-out hub: every frame from one peer is
// rebroadcast to all connected peers, sender included.
type testRelay struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*websocket.Conn]struct{}
}

func newTestRelay() *testRelay {
	return &testRelay{peers: make(map[*websocket.Conn]struct{})}
}

func (r *testRelay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.peers[conn] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.peers, conn)
		r.mu.Unlock()
		conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		r.mu.Lock()
		for peer := range r.peers {
			_ = peer.WriteMessage(mt, data)
		}
		r.mu.Unlock()
	}
}

// TestWSTransportFansOut verifies peer buses exchange events through a
// websocket relay, and a bus drops frames echoing its own origin.
func TestWSTransportFansOut(t *testing.T) {
	relay := newTestRelay()
	server := httptest.NewServer(relay)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	busA := New(Config{Origin: "ctx-a", FlushDelay: testFlushDelay}, logging.Default())
	busB := New(Config{Origin: "ctx-b", FlushDelay: testFlushDelay}, logging.Default())
	defer busA.Close()
	defer busB.Close()

	require.NoError(t, busA.AttachTransport(NewWSTransport(wsURL, logging.Default())))
	require.NoError(t, busB.AttachTransport(NewWSTransport(wsURL, logging.Default())))

	var heardA, heardB collector
	defer busA.Subscribe(TopicReferrals, heardA.handle)()
	defer busB.Subscribe(TopicReferrals, heardB.handle)()

	busA.Publish(TopicReferrals, map[string]string{"scope_id": "1", "action": "approve", "request_id": "3"})

	require.Eventually(t, func() bool { return heardB.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	evt := heardB.last()
	assert.Equal(t, "ctx-a", evt.Origin)

	// A hears its own publish exactly once (active local dispatch); the
	// relay echo of its own frame is dropped by origin.
	require.Eventually(t, func() bool { return heardA.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, heardA.count())
}

// TestWSTransportSendBeforeStart verifies the not-started guard.
func TestWSTransportSendBeforeStart(t *testing.T) {
	transport := NewWSTransport("ws://127.0.0.1:0", logging.Default())
	err := transport.Send(Event{Topic: TopicReferrals})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}
