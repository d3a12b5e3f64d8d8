// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"net/http"
	"strconv"
)

// Audit handles GET /api/v1/audit, returning recent report lifecycle
// events, newest first.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events, err := h.store.RecentAuditEvents(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load audit trail", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}
