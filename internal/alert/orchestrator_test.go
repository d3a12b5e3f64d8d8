// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package alert

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/realtime"
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

// fakeStore serves a fixed user map or a fixed error.
type fakeStore struct {
	store.Store
	users map[string]models.User
	err   error
}

func (f *fakeStore) GetUsers(context.Context) (map[string]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

// fakeSender records sends; numbers in failFor fail.
type fakeSender struct {
	mu      sync.Mutex
	chatIDs []string
	bodies  []string
	failFor map[string]bool
}

func (f *fakeSender) SendMessage(_ context.Context, chatID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("gateway timeout")
	}
	f.chatIDs = append(f.chatIDs, chatID)
	f.bodies = append(f.bodies, message)
	return nil
}

// fakeBroadcaster returns a canned result.
type fakeBroadcaster struct {
	mu     sync.Mutex
	alerts []realtime.Alert
	result realtime.BroadcastResult
}

func (f *fakeBroadcaster) Broadcast(alert realtime.Alert) realtime.BroadcastResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return f.result
}

func sectorUsers() map[string]models.User {
	return map[string]models.User{
		"911": {Mobile: "911", Area: "Sector 4"},
		"912": {Mobile: "912", Area: "sector 4"},
		"913": {Mobile: "913", Area: "Sector 5"},
		"914": {Mobile: "914", Area: "  Sector 4  "},
	}
}

func TestNotifyAreaSendsToMatchingUsers(t *testing.T) {
	sender := &fakeSender{}
	broadcaster := &fakeBroadcaster{result: realtime.BroadcastResult{Attempted: 2, Delivered: 2, Evicted: []string{}}}
	o := NewOrchestrator(&fakeStore{users: sectorUsers()}, sender, broadcaster)

	result := o.NotifyArea(context.Background(), "Sector 4", "Pothole", nil)

	if result.Status != StatusCompleted {
		t.Errorf("expected completed, got %+v", result)
	}
	if result.UsersFound != 3 {
		t.Errorf("expected 3 users found, got %d", result.UsersFound)
	}
	if result.MessagesSent != 3 {
		t.Errorf("expected 3 messages sent, got %d", result.MessagesSent)
	}
	if result.WebsocketClients != 2 {
		t.Errorf("expected 2 websocket clients, got %d", result.WebsocketClients)
	}

	for _, chatID := range sender.chatIDs {
		if !strings.HasSuffix(chatID, "@c.us") {
			t.Errorf("expected chat ID suffix, got %q", chatID)
		}
	}
	for _, body := range sender.bodies {
		if !strings.Contains(body, "Pothole") || !strings.Contains(body, "Sector 4") {
			t.Errorf("alert text missing area or issue: %q", body)
		}
	}
}

func TestNotifyAreaBroadcastPayload(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	o := NewOrchestrator(&fakeStore{users: map[string]models.User{}}, &fakeSender{}, broadcaster)

	o.NotifyArea(context.Background(), "Sector 4", "Fire", map[string]interface{}{"report_id": "r-1"})

	if len(broadcaster.alerts) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(broadcaster.alerts))
	}
	alert := broadcaster.alerts[0]
	if alert.TargetArea != "Sector 4" {
		t.Errorf("unexpected target area %q", alert.TargetArea)
	}
	payload, ok := alert.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload type %T", alert.Payload)
	}
	if payload["issue_type"] != "Fire" || payload["report_id"] != "r-1" {
		t.Errorf("unexpected payload %v", payload)
	}
	msg, _ := payload["message"].(string)
	if !strings.Contains(msg, "Fire") || !strings.Contains(msg, "Sector 4") {
		t.Errorf("composed message missing area or issue: %q", msg)
	}
	if payload["target_count"] != 0 {
		t.Errorf("expected 0 recipients in payload, got %v", payload["target_count"])
	}
}

func TestNotifyAreaDegradesOnStoreFailure(t *testing.T) {
	sender := &fakeSender{}
	broadcaster := &fakeBroadcaster{result: realtime.BroadcastResult{Attempted: 1, Delivered: 1, Evicted: []string{}}}
	o := NewOrchestrator(&fakeStore{err: errors.New("connection refused")}, sender, broadcaster)

	result := o.NotifyArea(context.Background(), "Sector 4", "Flood", nil)

	if result.Status != StatusDegraded {
		t.Errorf("expected degraded status, got %q", result.Status)
	}
	if result.DegradedReason == "" || !strings.Contains(result.DegradedReason, "connection refused") {
		t.Errorf("expected reason with cause, got %q", result.DegradedReason)
	}
	if result.UsersFound != 0 || result.MessagesSent != 0 {
		t.Errorf("expected zero whatsapp counts, got %+v", result)
	}
	// The broadcast still goes out in a degraded run.
	if result.WebsocketClients != 1 {
		t.Errorf("expected broadcast to run, got %+v", result)
	}
	if len(sender.chatIDs) != 0 {
		t.Errorf("expected no whatsapp sends, got %v", sender.chatIDs)
	}
}

func TestNotifyAreaCountsPartialSendFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"912@c.us": true}}
	o := NewOrchestrator(&fakeStore{users: sectorUsers()}, sender, &fakeBroadcaster{})

	result := o.NotifyArea(context.Background(), "Sector 4", "Garbage", nil)

	if result.Status != StatusCompleted {
		t.Errorf("send failures must not degrade the run: %+v", result)
	}
	if result.UsersFound != 3 {
		t.Errorf("expected 3 users found, got %d", result.UsersFound)
	}
	if result.MessagesSent != 2 {
		t.Errorf("expected 2 sent with 1 failure, got %d", result.MessagesSent)
	}
}

func TestNotifyAreaNoMatchingUsers(t *testing.T) {
	sender := &fakeSender{}
	o := NewOrchestrator(&fakeStore{users: sectorUsers()}, sender, &fakeBroadcaster{})

	result := o.NotifyArea(context.Background(), "Sector 99", "Pothole", nil)

	if result.UsersFound != 0 || result.MessagesSent != 0 {
		t.Errorf("expected zero counts, got %+v", result)
	}
	if len(sender.chatIDs) != 0 {
		t.Errorf("expected no sends, got %v", sender.chatIDs)
	}
}

func TestNotifyAreaNilCollaborators(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil)

	result := o.NotifyArea(context.Background(), "Sector 4", "Pothole", nil)

	if result.Status != StatusCompleted {
		t.Errorf("expected completed with nil collaborators, got %+v", result)
	}
	if result.UsersFound != 0 || result.MessagesSent != 0 || result.WebsocketClients != 0 {
		t.Errorf("expected zero counts, got %+v", result)
	}
}

func TestMatchAreaTrimsAndIgnoresCase(t *testing.T) {
	mobiles := matchArea(sectorUsers(), "  SECTOR 4 ")
	if len(mobiles) != 3 {
		t.Fatalf("expected 3 matches, got %v", mobiles)
	}
	// Deterministic order.
	for i, want := range []string{"911", "912", "914"} {
		if mobiles[i] != want {
			t.Errorf("expected sorted mobiles, got %v", mobiles)
		}
	}

	if got := matchArea(sectorUsers(), ""); got != nil {
		t.Errorf("expected nil for empty area, got %v", got)
	}
}
