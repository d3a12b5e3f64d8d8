// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package events

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Format: "json",
		Output: io.Discard,
	})
}

func TestBusPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.pubsub.Subscribe(ctx, models.EventReportVerified)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(&models.AuditEvent{
		Event:    models.EventReportVerified,
		ReportID: "r-1",
		Area:     "Sector 4",
	})

	select {
	case msg := <-ch:
		msg.Ack()
		if len(msg.Payload) == 0 {
			t.Error("expected non-empty payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestAuditConsumerPersistsEvents(t *testing.T) {
	st, err := store.NewBadgerStore("")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewAuditConsumer(bus, st)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Serve(ctx)
	}()

	// Give the consumer time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	bus.Publish(&models.AuditEvent{
		Event:    models.EventReportCreated,
		ReportID: "r-1",
		Area:     "Sector 4",
		Status:   models.StatusPending,
	})
	bus.Publish(&models.AuditEvent{
		Event:    models.EventReportVerified,
		ReportID: "r-1",
		Area:     "Sector 4",
		Status:   models.StatusVerified,
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := st.RecentAuditEvents(context.Background(), 10)
		if err != nil {
			t.Fatalf("RecentAuditEvents: %v", err)
		}
		if len(events) == 2 {
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("audit events never persisted")
}

func TestAuditConsumerStopsOnContextCancel(t *testing.T) {
	st, err := store.NewBadgerStore("")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewAuditConsumer(bus, st)

	done := make(chan error, 1)
	go func() { done <- consumer.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}
