// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bus implements the cross-context event bus for the AlmaLink
// local-first data layer.
//
// A change travels on two channels:
//
//  1. Passive: the storage layer's own change notification (BadgerDB key
//     subscription, see Watcher). Other contexts receive it automatically;
//     the originating context does not; its own writes are suppressed
//     through the store's self-write tracking.
//  2. Active: an explicit in-process broadcast the originating context
//     fires itself via Publish, so same-context listeners also observe
//     the change.
//
// Payloads are advisory cues only. Handlers must re-read the
// authoritative current state from the store; they must never treat a
// payload as a delta. The only ordering guarantee is happens-after the
// originating write's flush, which Publish enforces with a short delay
// before broadcasting.
package bus

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// Well-known topics.
const (
	// TopicReferrals carries referral collection changes.
	TopicReferrals = "referrals.changed"

	// TopicDiscussions carries comment ledger and discussion changes.
	TopicDiscussions = "discussions.changed"

	// TopicStore carries changes to keys outside the core collections
	// (preference documents and the like).
	TopicStore = "store.changed"
)

// DefaultFlushDelay is the pause between Publish and the explicit
// broadcast, long enough for any antecedent store write to be durable
// before subscribers re-read.
const DefaultFlushDelay = 75 * time.Millisecond

// Event is one change notification.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Topic names the change family (see the Topic constants).
	Topic string `json:"topic"`

	// Origin is the context ID that produced the event, or "" for
	// passive storage-layer notifications.
	Origin string `json:"origin"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`

	// Data is the advisory payload. Handlers re-read the store; they do
	// not act on this as a delta.
	Data any `json:"data"`
}

// StoreChange is the payload of passive storage-layer notifications.
type StoreChange struct {
	Key string `json:"key"`
}

// Handler processes events for one subscription.
type Handler func(evt Event)

// Config configures a Bus.
type Config struct {
	// Origin is the owning context's ID, stamped onto published events.
	Origin string

	// FlushDelay overrides DefaultFlushDelay. Values outside the
	// 50–100ms band are accepted (tests shorten it) but production
	// configs should stay inside it.
	FlushDelay time.Duration
}

type subscription struct {
	id      string
	topic   string
	handler Handler
}

// Bus is one context's endpoint on the event fabric.
//
// Thread Safety: Bus is safe for concurrent use.
type Bus struct {
	origin     string
	flushDelay time.Duration
	logger     *logging.Logger

	mu         sync.RWMutex
	subs       map[string]*subscription
	transports []Transport
	closed     bool
}

// New creates a Bus for one context.
func New(cfg Config, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}
	delay := cfg.FlushDelay
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Bus{
		origin:     cfg.Origin,
		flushDelay: delay,
		logger:     logger.With("component", "bus", "context_id", cfg.Origin),
		subs:       make(map[string]*subscription),
	}
}

// Origin returns the owning context's ID.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers a handler for a topic and returns its release
// function.
//
// Description:
//
//	Subscription is a scoped acquisition: the caller must invoke the
//	returned function on teardown, or handlers leak across re-renders.
//	An empty topic subscribes to every topic.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, sub.id)
		b.mu.Unlock()
	}
}

// Publish fires the explicit broadcast for a change this context made.
//
// Description:
//
//	The broadcast is delayed by the configured flush interval so any
//	antecedent store write is durable before subscribers re-read; this
//	closes the race where a same-context listener reacts before the new
//	value is readable. Local subscribers and attached transports both
//	receive the event. Publish never blocks on handlers.
func (b *Bus) Publish(topic string, data any) {
	evt := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Origin:    b.origin,
		Timestamp: time.Now(),
		Data:      data,
	}
	busPublished.WithLabelValues(topic).Inc()

	time.AfterFunc(b.flushDelay, func() {
		b.dispatch(evt, "active")
		b.forward(evt)
	})
}

// Deliver injects an event received from outside this context (the
// passive watcher or a transport peer) and dispatches it immediately;
// the originating context already paid the flush delay.
func (b *Bus) Deliver(evt Event, channel string) {
	b.dispatch(evt, channel)
}

// AttachTransport starts a transport and adds it to the fan-out set.
// Incoming transport events from other origins are delivered locally.
func (b *Bus) AttachTransport(t Transport) error {
	if err := t.Start(func(evt Event) {
		if evt.Origin == b.origin {
			return
		}
		b.Deliver(evt, "transport")
	}); err != nil {
		return err
	}

	b.mu.Lock()
	b.transports = append(b.transports, t)
	b.mu.Unlock()
	return nil
}

// Close releases all subscriptions and closes attached transports.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subs = make(map[string]*subscription)
	transports := b.transports
	b.transports = nil
	b.mu.Unlock()

	var firstErr error
	for _, t := range transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bus) dispatch(evt Event, channel string) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.topic == "" || sub.topic == evt.Topic {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		b.safeInvoke(sub.handler, evt)
	}
	busDelivered.WithLabelValues(evt.Topic, channel).Add(float64(len(subs)))
}

func (b *Bus) forward(evt Event) {
	b.mu.RLock()
	transports := make([]Transport, len(b.transports))
	copy(transports, b.transports)
	b.mu.RUnlock()

	for _, t := range transports {
		if err := t.Send(evt); err != nil {
			b.logger.Warn("transport send failed", "topic", evt.Topic, "error", err.Error())
		}
	}
}

// safeInvoke shields the bus from a panicking handler so the remaining
// subscribers still observe the event.
func (b *Bus) safeInvoke(handler Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"topic", evt.Topic,
				"event_id", evt.ID,
				"panic", r,
			)
		}
	}()
	handler(evt)
}

// TopicForKey maps a storage key to the topic its changes travel on.
func TopicForKey(key string) string {
	switch {
	case strings.HasPrefix(key, store.ReferralPrefix):
		return TopicReferrals
	case strings.HasPrefix(key, store.CommentsPrefix), key == store.DiscussionsKey:
		return TopicDiscussions
	default:
		return TopicStore
	}
}
