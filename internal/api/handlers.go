// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"net/http"
	"time"

	"github.com/nagaralert/hub/internal/alert"
	"github.com/nagaralert/hub/internal/auth"
	"github.com/nagaralert/hub/internal/classify"
	"github.com/nagaralert/hub/internal/config"
	"github.com/nagaralert/hub/internal/events"
	"github.com/nagaralert/hub/internal/gateway"
	"github.com/nagaralert/hub/internal/realtime"
	"github.com/nagaralert/hub/internal/store"
)

var startTime = time.Now()

// Handler carries the collaborators behind the HTTP endpoints. Analyzer and
// responder may be nil when the corresponding integration is disabled;
// handlers degrade instead of failing.
type Handler struct {
	cfg          *config.Config
	store        store.Store
	registry     *realtime.Registry
	broadcaster  *realtime.Broadcaster
	orchestrator *alert.Orchestrator
	analyzer     classify.Analyzer
	responder    *gateway.Responder
	bus          *events.Bus
	jwt          *auth.JWTManager
}

// NewHandler wires the handler set.
func NewHandler(
	cfg *config.Config,
	st store.Store,
	registry *realtime.Registry,
	broadcaster *realtime.Broadcaster,
	orchestrator *alert.Orchestrator,
	analyzer classify.Analyzer,
	responder *gateway.Responder,
	bus *events.Bus,
	jwt *auth.JWTManager,
) *Handler {
	return &Handler{
		cfg:          cfg,
		store:        st,
		registry:     registry,
		broadcaster:  broadcaster,
		orchestrator: orchestrator,
		analyzer:     analyzer,
		responder:    responder,
		bus:          bus,
		jwt:          jwt,
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "nagaralert-hub",
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	})
}

// HealthLive handles GET /api/v1/health/live. Always OK while the process
// is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Ready means the store
// answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if _, err := h.store.GetUsers(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Store unavailable", err)
			return
		}
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
