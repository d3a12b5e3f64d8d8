// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package realtime

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/metrics"
)

// Alert is one area-scoped notification to fan out.
type Alert struct {
	// TargetArea selects recipients; matched case-insensitively against
	// each client's subscriptions. An empty TargetArea means no area
	// filter: the alert goes to every live connection.
	TargetArea string

	// Payload is the caller's alert body, wrapped in an Envelope before
	// delivery.
	Payload interface{}
}

// BroadcastResult reports the outcome of one fan-out.
type BroadcastResult struct {
	// Attempted is the number of clients whose subscriptions matched the
	// target area when the broadcast started.
	Attempted int `json:"attempted"`

	// Delivered is the number of pushes that succeeded.
	Delivered int `json:"delivered"`

	// Evicted lists the client IDs removed because their push failed.
	// Always non-nil, sorted.
	Evicted []string `json:"evicted"`
}

// Broadcaster fans alerts out to the registry's matching connections.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster returns a Broadcaster over the given registry.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Broadcast pushes the alert to every client subscribed to its target area,
// concurrently, and returns once every push has completed. A failed push
// evicts the connection from the registry before Broadcast returns; failures
// never abort the rest of the batch. The recipient set is snapshotted up
// front, so clients connecting mid-broadcast are not included.
func (b *Broadcaster) Broadcast(alert Alert) BroadcastResult {
	var targets map[string]Pusher
	if strings.TrimSpace(alert.TargetArea) == "" {
		targets = b.registry.all()
	} else {
		targets = b.registry.targets(alert.TargetArea)
	}
	result := BroadcastResult{
		Attempted: len(targets),
		Evicted:   []string{},
	}

	metrics.BroadcastsTotal.Inc()
	if len(targets) == 0 {
		return result
	}

	envelope := Envelope{
		Type:      MessageTypeAlert,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      alert.Payload,
	}

	var (
		mu        sync.Mutex
		delivered int
		evicted   []string
		wg        sync.WaitGroup
	)
	for clientID, pusher := range targets {
		wg.Add(1)
		go func(clientID string, pusher Pusher) {
			defer wg.Done()
			err := pusher.Push(envelope)

			mu.Lock()
			if err != nil {
				evicted = append(evicted, clientID)
			} else {
				delivered++
			}
			mu.Unlock()

			if err != nil {
				logging.Warn().
					Str("component", "realtime").
					Str("client_id", clientID).
					Err(err).
					Msg("push failed, evicting connection")
				b.registry.Unregister(clientID)
				metrics.BroadcastDeliveries.WithLabelValues("evicted").Inc()
			} else {
				metrics.BroadcastDeliveries.WithLabelValues("delivered").Inc()
			}
		}(clientID, pusher)
	}
	wg.Wait()

	sort.Strings(evicted)
	result.Delivered = delivered
	if len(evicted) > 0 {
		result.Evicted = evicted
	}

	logging.Info().
		Str("component", "realtime").
		Str("area", alert.TargetArea).
		Int("attempted", result.Attempted).
		Int("delivered", result.Delivered).
		Int("evicted", len(result.Evicted)).
		Msg("alert broadcast complete")
	return result
}
