// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

// Transport extends the active channel beyond one process. The in-process
// dispatch path needs no transport; file and websocket transports let
// separate OS processes act as peer contexts over the same fabric.
type Transport interface {
	// Start begins receiving. Incoming events are handed to deliver;
	// the bus filters out this context's own origin.
	Start(deliver func(Event)) error

	// Send forwards a locally published event to peers.
	Send(evt Event) error

	// Close releases the transport's resources.
	Close() error
}

// FileTransport exchanges events through an append-only spool file.
// Peers watch the file with fsnotify and replay appended lines. One JSON
// event per line.
type FileTransport struct {
	path   string
	logger *logging.Logger

	mu      sync.Mutex
	out     *os.File
	offset  int64
	pending []byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileTransport creates a file spool transport at path.
func NewFileTransport(path string, logger *logging.Logger) *FileTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileTransport{
		path:   path,
		logger: logger.With("component", "file_transport", "path", path),
	}
}

// Start opens the spool and begins watching for peer appends. Events
// already in the spool are not replayed; only appends after Start are
// delivered.
func (t *FileTransport) Start(deliver func(Event)) error {
	out, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open spool %s: %w", t.path, err)
	}
	t.out = out

	info, err := out.Stat()
	if err != nil {
		out.Close()
		return fmt.Errorf("stat spool %s: %w", t.path, err)
	}
	t.offset = info.Size()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		out.Close()
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		out.Close()
		return fmt.Errorf("watch spool %s: %w", t.path, err)
	}
	t.watcher = watcher
	t.done = make(chan struct{})

	go t.run(deliver)
	return nil
}

// Send appends one event as a JSON line. Line appends are small enough
// for O_APPEND to keep peers from interleaving partial lines.
func (t *FileTransport) Send(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out == nil {
		return fmt.Errorf("transport not started")
	}
	if _, err := t.out.Write(data); err != nil {
		return fmt.Errorf("append spool: %w", err)
	}
	return t.out.Sync()
}

// Close stops watching and closes the spool.
func (t *FileTransport) Close() error {
	if t.watcher != nil {
		t.watcher.Close()
		<-t.done
		t.watcher = nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out != nil {
		err := t.out.Close()
		t.out = nil
		return err
	}
	return nil
}

func (t *FileTransport) run(deliver func(Event)) {
	defer close(t.done)
	for {
		select {
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Write) {
				t.drain(deliver)
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("spool watch error", "error", err.Error())
		}
	}
}

// drain reads newly appended bytes and delivers every complete line.
func (t *FileTransport) drain(deliver func(Event)) {
	t.mu.Lock()
	in, err := os.Open(t.path)
	if err != nil {
		t.mu.Unlock()
		t.logger.Warn("spool open failed", "error", err.Error())
		return
	}
	if _, err := in.Seek(t.offset, 0); err != nil {
		in.Close()
		t.mu.Unlock()
		t.logger.Warn("spool seek failed", "error", err.Error())
		return
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			t.offset += int64(n)
			t.pending = append(t.pending, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	in.Close()

	var lines [][]byte
	for {
		idx := bytes.IndexByte(t.pending, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, t.pending[:idx])
		t.pending = t.pending[idx+1:]
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	t.mu.Unlock()

	for _, line := range lines {
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			t.logger.Warn("spool line skipped", "error", err.Error())
			continue
		}
		deliver(evt)
	}
}
