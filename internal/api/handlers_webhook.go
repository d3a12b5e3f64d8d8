// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"net/http"

	"github.com/nagaralert/hub/internal/gateway"
)

// WhatsAppWebhook handles POST /api/v1/webhook/whatsapp. The provider
// retries on non-2xx, so every parseable notification gets a 200 even when
// the auto-reply fails.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	var payload gateway.WebhookPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed webhook payload", err)
		return
	}

	if h.responder == nil {
		respondData(w, http.StatusOK, gateway.WebhookResult{Status: "ignored", Reason: "whatsapp_disabled"})
		return
	}

	result := h.responder.Handle(r.Context(), &payload)
	respondData(w, http.StatusOK, result)
}
