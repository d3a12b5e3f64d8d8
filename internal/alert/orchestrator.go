// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package alert orchestrates area notifications: when a report is verified,
// every resident of the affected area is notified over WhatsApp and every
// live WebSocket subscriber gets a push.
package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nagaralert/hub/internal/gateway"
	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/metrics"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/realtime"
	"github.com/nagaralert/hub/internal/store"
)

// Statuses reported in Result. A degraded run means the user store was
// unreachable; the caller still gets a well-formed result, never an error.
const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
)

// Result aggregates the outcome of one area notification.
type Result struct {
	Status           string `json:"status"`
	TargetArea       string `json:"target_area"`
	UsersFound       int    `json:"users_found"`
	MessagesSent     int    `json:"messages_sent"`
	WebsocketClients int    `json:"websocket_clients"`
	DegradedReason   string `json:"degraded_reason,omitempty"`
}

// Broadcaster is the realtime fan-out the orchestrator drives.
type Broadcaster interface {
	Broadcast(alert realtime.Alert) realtime.BroadcastResult
}

// Orchestrator fans a verified report out to an area's residents.
type Orchestrator struct {
	store       store.Store
	sender      gateway.Sender
	broadcaster Broadcaster
}

// NewOrchestrator wires the store, gateway, and broadcaster together. Any
// collaborator may be nil; the corresponding channel is skipped.
func NewOrchestrator(st store.Store, sender gateway.Sender, broadcaster Broadcaster) *Orchestrator {
	return &Orchestrator{store: st, sender: sender, broadcaster: broadcaster}
}

// NotifyArea notifies everyone associated with the area about a verified
// issue. WhatsApp sends run concurrently with each other and with the
// WebSocket broadcast; individual send failures reduce MessagesSent but
// never abort the run. A store failure degrades the run instead of failing
// it: WhatsApp is skipped, the broadcast still goes out, and Status says so.
func (o *Orchestrator) NotifyArea(ctx context.Context, area, issueType string, extra map[string]interface{}) Result {
	result := Result{Status: StatusCompleted, TargetArea: area}

	var recipients []string
	if o.store != nil {
		users, err := o.store.GetUsers(ctx)
		if err != nil {
			result.Status = StatusDegraded
			result.DegradedReason = fmt.Sprintf("user store unavailable: %v", err)
			logging.Ctx(ctx).Err(err).
				Str("component", "alert").
				Str("area", area).
				Msg("user fetch failed, degrading to websocket-only")
		} else {
			recipients = matchArea(users, area)
			result.UsersFound = len(recipients)
		}
	}

	message := fmt.Sprintf(
		"NagarAlert: a %s has been verified in %s. Please stay alert and avoid the affected spot.",
		issueType, area,
	)

	payload := map[string]interface{}{
		"area":         area,
		"issue_type":   issueType,
		"message":      message,
		"target_count": len(recipients),
	}
	for k, v := range extra {
		payload[k] = v
	}

	var sent atomic.Int64
	var wg sync.WaitGroup

	if o.sender != nil {
		for _, mobile := range recipients {
			wg.Add(1)
			go func(mobile string) {
				defer wg.Done()
				if err := o.sender.SendMessage(ctx, gateway.ChatID(mobile), message); err != nil {
					logging.Ctx(ctx).Warn().
						Str("component", "alert").
						Str("mobile", mobile).
						Err(err).
						Msg("whatsapp alert failed")
					return
				}
				sent.Add(1)
			}(mobile)
		}
	}

	if o.broadcaster != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			br := o.broadcaster.Broadcast(realtime.Alert{TargetArea: area, Payload: payload})
			result.WebsocketClients = br.Attempted
		}()
	}

	wg.Wait()
	result.MessagesSent = int(sent.Load())

	metrics.AreaAlertsTotal.WithLabelValues(result.Status).Inc()
	logging.Ctx(ctx).Info().
		Str("component", "alert").
		Str("area", area).
		Str("issue_type", issueType).
		Str("status", result.Status).
		Int("users_found", result.UsersFound).
		Int("messages_sent", result.MessagesSent).
		Int("websocket_clients", result.WebsocketClients).
		Msg("area notification complete")
	return result
}

// matchArea selects the mobile numbers of users whose area equals the
// target, ignoring case and surrounding whitespace.
func matchArea(users map[string]models.User, area string) []string {
	want := strings.TrimSpace(area)
	if want == "" {
		return nil
	}

	var mobiles []string
	for mobile, user := range users {
		if strings.EqualFold(strings.TrimSpace(user.Area), want) {
			if user.Mobile != "" {
				mobile = user.Mobile
			}
			mobiles = append(mobiles, mobile)
		}
	}
	sort.Strings(mobiles)
	return mobiles
}
