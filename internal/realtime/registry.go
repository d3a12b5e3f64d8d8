// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package realtime maintains live WebSocket connections and fans alerts out
// to the clients subscribed to the affected area.
package realtime

import (
	"sort"
	"strings"
	"sync"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/metrics"
)

// Pusher delivers one serialized message to a connected client. Push blocks
// until the write completes or fails; a non-nil error means the connection
// is dead. Close releases the transport and must be safe to call more than
// once.
type Pusher interface {
	Push(v interface{}) error
	Close() error
}

type connection struct {
	pusher Pusher
	areas  []string
}

// Registry is the authoritative map of live connections and their area
// subscriptions. All mutations are atomic per client ID and safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Register adds a connection under clientID with no subscriptions. If the
// client ID is already registered the previous transport is closed and
// replaced, so a reconnecting client never leaves a stale entry behind.
func (r *Registry) Register(clientID string, p Pusher) {
	r.mu.Lock()
	old, existed := r.conns[clientID]
	r.conns[clientID] = &connection{pusher: p}
	count := len(r.conns)
	r.mu.Unlock()

	if existed {
		_ = old.pusher.Close()
	}
	metrics.WSConnections.Set(float64(count))

	logging.Info().
		Str("component", "realtime").
		Str("client_id", clientID).
		Int("connections", count).
		Bool("replaced", existed).
		Msg("client connected")
}

// SetSubscriptions replaces the client's area list wholesale. Subscribing
// is not additive: areas absent from the new list are dropped. Unknown
// client IDs are ignored.
func (r *Registry) SetSubscriptions(clientID string, areas []string) {
	normalized := make([]string, 0, len(areas))
	for _, a := range areas {
		a = strings.TrimSpace(a)
		if a != "" {
			normalized = append(normalized, a)
		}
	}

	r.mu.Lock()
	conn, ok := r.conns[clientID]
	if ok {
		conn.areas = normalized
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	logging.Debug().
		Str("component", "realtime").
		Str("client_id", clientID).
		Strs("areas", normalized).
		Msg("subscriptions replaced")
}

// Unregister removes the client and closes its transport. Unregistering an
// unknown client is a no-op, so eviction paths can call it without
// coordination.
func (r *Registry) Unregister(clientID string) {
	r.remove(clientID, nil)
}

// UnregisterPusher removes the client only while p is still its registered
// transport. The read loop of a replaced connection tears down through here;
// if Register has already installed a successor under the same client ID,
// the stale teardown leaves it untouched.
func (r *Registry) UnregisterPusher(clientID string, p Pusher) {
	r.remove(clientID, p)
}

func (r *Registry) remove(clientID string, expect Pusher) {
	r.mu.Lock()
	conn, ok := r.conns[clientID]
	if ok && expect != nil && conn.pusher != expect {
		r.mu.Unlock()
		return
	}
	if ok {
		delete(r.conns, clientID)
	}
	count := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	_ = conn.pusher.Close()
	metrics.WSConnections.Set(float64(count))

	logging.Info().
		Str("component", "realtime").
		Str("client_id", clientID).
		Int("connections", count).
		Msg("client disconnected")
}

// Subscriptions returns a copy of the client's current area list, or nil if
// the client is not registered.
func (r *Registry) Subscriptions(clientID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[clientID]
	if !ok {
		return nil
	}
	out := make([]string, len(conn.areas))
	copy(out, conn.areas)
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ClientIDs returns the IDs of all live connections, sorted.
func (r *Registry) ClientIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// all snapshots every live connection, subscribed or not.
func (r *Registry) all() map[string]Pusher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Pusher, len(r.conns))
	for id, conn := range r.conns {
		out[id] = conn.pusher
	}
	return out
}

// targets snapshots the clients subscribed to area. Matching ignores case
// and surrounding whitespace, so "sector 4" reaches subscribers of
// "Sector 4". An empty area matches nothing; a client with no subscriptions
// matches nothing either.
func (r *Registry) targets(area string) map[string]Pusher {
	want := strings.TrimSpace(area)
	if want == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Pusher)
	for id, conn := range r.conns {
		for _, a := range conn.areas {
			if strings.EqualFold(a, want) {
				out[id] = conn.pusher
				break
			}
		}
	}
	return out
}
