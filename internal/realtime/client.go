// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nagaralert/hub/internal/logging"
)

const (
	// writeWait bounds every write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for activity before the read side
	// declares the peer gone.
	pongWait = 60 * time.Second

	// pingPeriod is the keep-alive interval; must be under pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client wraps one gorilla/websocket connection as a registry Pusher. Writes
// are serialized by a mutex shared between Push, the control-message replies,
// and the keep-alive pinger; gorilla connections allow only one concurrent
// writer.
type Client struct {
	id       string
	conn     *websocket.Conn
	registry *Registry

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps conn and registers it under clientID. Call Start to begin
// the read and keep-alive loops.
func NewClient(clientID string, conn *websocket.Conn, registry *Registry) *Client {
	c := &Client{
		id:       clientID,
		conn:     conn,
		registry: registry,
		done:     make(chan struct{}),
	}
	registry.Register(clientID, c)
	return c
}

// Push serializes v and writes it to the peer synchronously. A returned
// error means the connection is unusable; the broadcaster reacts by evicting
// the client.
func (c *Client) Push(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close shuts the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Start runs the read loop and the keep-alive pinger. It blocks until the
// connection dies, then unregisters the client.
func (c *Client) Start() {
	go c.pingLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	// Identity-aware teardown: when a reconnect has already replaced this
	// client under the same ID, the dying read loop must not remove the
	// replacement's registry entry.
	defer c.registry.UnregisterPusher(c.id, c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().
					Str("component", "realtime").
					Str("client_id", c.id).
					Err(err).
					Msg("read loop ended")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(data)
	}
}

// handleMessage dispatches one inbound control frame. Malformed frames and
// unknown types are dropped without a response; the connection stays up.
func (c *Client) handleMessage(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Debug().
			Str("component", "realtime").
			Str("client_id", c.id).
			Err(err).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.registry.SetSubscriptions(c.id, msg.Areas)
		areas := c.registry.Subscriptions(c.id)
		_ = c.Push(subscriptionConfirmation{
			Type:    MessageTypeSubscriptionConfirm,
			Areas:   areas,
			Message: fmt.Sprintf("Subscribed to %d area(s)", len(areas)),
		})
	case MessageTypePing:
		_ = c.Push(pongMessage{Type: MessageTypePong})
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
