// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/store"
)

// AuditConsumer persists every lifecycle event into the store's audit
// trail. It runs as a supervised service: Serve blocks until the context is
// cancelled or the bus closes.
type AuditConsumer struct {
	bus   *Bus
	store store.Store
}

// NewAuditConsumer wires the consumer to the bus and store.
func NewAuditConsumer(bus *Bus, st store.Store) *AuditConsumer {
	return &AuditConsumer{bus: bus, store: st}
}

// Serve subscribes to all lifecycle topics and persists each event. A
// failed write is logged and the message acked anyway; the audit trail is
// best-effort and must not wedge the bus. Implements suture.Service.
func (c *AuditConsumer) Serve(ctx context.Context) error {
	channels, err := c.bus.subscribeAll(ctx)
	if err != nil {
		return err
	}

	logging.Info().
		Str("component", "events").
		Int("topics", len(channels)).
		Msg("audit consumer started")

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch <-chan *message.Message) {
			defer wg.Done()
			c.consume(ctx, ch)
		}(ch)
	}
	wg.Wait()
	return ctx.Err()
}

func (c *AuditConsumer) consume(ctx context.Context, ch <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *AuditConsumer) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event models.AuditEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Err(err).
			Str("component", "events").
			Str("message_id", msg.UUID).
			Msg("malformed lifecycle event")
		return
	}

	if err := c.store.AppendAuditEvent(ctx, &event); err != nil {
		logging.Err(err).
			Str("component", "events").
			Str("event", event.Event).
			Str("report_id", event.ReportID).
			Msg("audit write failed")
		return
	}

	logging.Debug().
		Str("component", "events").
		Str("event", event.Event).
		Str("report_id", event.ReportID).
		Msg("audit event persisted")
}

// String names the service in supervisor logs.
func (c *AuditConsumer) String() string {
	return "audit-consumer"
}
