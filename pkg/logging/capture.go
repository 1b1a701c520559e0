// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Timestamp time.Time
	Level     slog.Level
	Message   string
	Attrs     map[string]any
}

// Capture collects log entries in memory so tests can assert on them:
//
//	logger, capture := logging.NewCapture()
//	component := store.New(backend, "ctx-a", logger)
//	...
//	require.True(t, capture.Contains("corrupt value discarded"))
type Capture struct {
	mu      sync.Mutex
	entries []Entry
	attrs   []slog.Attr
}

// NewCapture returns a Logger whose output is recorded in the returned
// Capture. All levels are captured.
func NewCapture() (*Logger, *Capture) {
	c := &Capture{}
	return FromHandler(c), c
}

// Entries returns a copy of all captured entries.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Contains reports whether any captured entry has the given message.
func (c *Capture) Contains(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// Enabled implements slog.Handler; everything is captured.
func (c *Capture) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (c *Capture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	c.entries = append(c.entries, Entry{
		Timestamp: r.Time,
		Level:     r.Level,
		Message:   r.Message,
		Attrs:     attrs,
	})
	c.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler; the same capture keeps recording.
func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := &captureView{parent: c, attrs: append(append([]slog.Attr{}, c.attrs...), attrs...)}
	return clone
}

// WithGroup implements slog.Handler. Groups are flattened; good enough
// for assertions.
func (c *Capture) WithGroup(string) slog.Handler { return c }

// captureView is a child handler sharing the parent's entry list.
type captureView struct {
	parent *Capture
	attrs  []slog.Attr
}

func (v *captureView) Enabled(context.Context, slog.Level) bool { return true }

func (v *captureView) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(v.attrs...)
	return v.parent.Handle(ctx, r)
}

func (v *captureView) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureView{parent: v.parent, attrs: append(append([]slog.Attr{}, v.attrs...), attrs...)}
}

func (v *captureView) WithGroup(string) slog.Handler { return v }
