// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bus

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
)

// WSTransport exchanges events through a websocket relay. Every frame
// written by one peer is fanned out by the relay to all connected peers;
// the bus drops frames carrying its own origin.
type WSTransport struct {
	url    string
	logger *logging.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

// NewWSTransport creates a websocket transport that will dial url.
func NewWSTransport(url string, logger *logging.Logger) *WSTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSTransport{
		url:    url,
		logger: logger.With("component", "ws_transport", "url", url),
	}
}

// Start dials the relay and begins the read loop.
func (t *WSTransport) Start(deliver func(Event)) error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", t.url, err)
	}
	t.conn = conn
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		for {
			var evt Event
			if err := conn.ReadJSON(&evt); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.logger.Warn("relay read ended", "error", err.Error())
				}
				return
			}
			deliver(evt)
		}
	}()
	return nil
}

// Send writes one event frame to the relay.
func (t *WSTransport) Send(evt Event) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("transport not started")
	}
	if err := t.conn.WriteJSON(evt); err != nil {
		return fmt.Errorf("write relay frame: %w", err)
	}
	return nil
}

// Close sends a close frame and tears the connection down.
func (t *WSTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()

	err := t.conn.Close()
	<-t.done
	t.conn = nil
	return err
}
