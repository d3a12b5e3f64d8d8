// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package events carries report lifecycle events over an in-process
// Watermill pub/sub. Handlers run decoupled from the HTTP request that
// triggered the event; the audit consumer persists every event it sees.
package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/models"
)

// Topics, one per lifecycle event; the event name doubles as the topic.
var topics = []string{
	models.EventReportCreated,
	models.EventReportVerified,
	models.EventReportResolved,
}

// Bus is the in-process report lifecycle event bus.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the bus with a bounded per-subscriber buffer so a slow
// consumer cannot pile up unbounded memory.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, newWatermillLogger())
	return &Bus{pubsub: pubsub}
}

// Publish emits one lifecycle event. Publish failures are logged and
// swallowed; a broken bus must never fail the originating request.
func (b *Bus) Publish(event *models.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Err(err).
			Str("component", "events").
			Str("event", event.Event).
			Msg("marshal lifecycle event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(event.Event, msg); err != nil {
		logging.Err(err).
			Str("component", "events").
			Str("event", event.Event).
			Msg("publish lifecycle event")
		return
	}

	logging.Debug().
		Str("component", "events").
		Str("event", event.Event).
		Str("report_id", event.ReportID).
		Msg("lifecycle event published")
}

// Subscribe returns one channel per lifecycle topic.
func (b *Bus) subscribeAll(ctx context.Context) ([]<-chan *message.Message, error) {
	channels := make([]<-chan *message.Message, 0, len(topics))
	for _, topic := range topics {
		ch, err := b.pubsub.Subscribe(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// Close shuts the pub/sub down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts zerolog to the watermill.LoggerAdapter interface.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) event(err error, msg string, fields watermill.LogFields, level string) {
	var ev = logging.Debug()
	switch level {
	case "info":
		ev = logging.Info()
	case "error":
		ev = logging.Err(err)
	case "trace":
		ev = logging.Debug()
	}
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Str("component", "events").Msg(msg)
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(err, msg, fields, "error")
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(nil, msg, fields, "info")
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(nil, msg, fields, "debug")
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(nil, msg, fields, "trace")
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &watermillLogger{fields: merged}
}
