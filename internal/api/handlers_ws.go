// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the app origins already vetted by CORS;
	// the upgrade itself carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket handles GET /api/v1/ws. The client_id query parameter keys the
// registry entry; omitted IDs get a generated one.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Warn().
			Str("component", "api").
			Err(err).
			Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(clientID, conn, h.registry)
	go client.Start()
}

// WSStatus handles GET /api/v1/ws/status.
func (h *Handler) WSStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"connections": h.registry.Count(),
		"client_ids":  h.registry.ClientIDs(),
	})
}
