// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"errors"
	"net/http"

	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/store"
)

type solveRequest struct {
	ReportID    string `json:"report_id" validate:"required"`
	AdminID     string `json:"admin_id"`
	AdminName   string `json:"admin_name"`
	Description string `json:"description" validate:"required"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// SolveReport handles POST /api/v1/solutions/solve. Saving the solution
// atomically resolves the referenced report; the resolution event follows
// on the bus.
func (h *Handler) SolveReport(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	report, err := h.store.GetReport(r.Context(), req.ReportID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Report not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load report", err)
		return
	}

	actor := req.AdminID
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		actor = claims.Mobile
	}

	solution := &models.Solution{
		ReportID:    req.ReportID,
		AdminID:     actor,
		AdminName:   req.AdminName,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	id, err := h.store.SaveSolution(r.Context(), solution)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save solution", err)
		return
	}

	h.publishEvent(&models.AuditEvent{
		Event:    models.EventReportResolved,
		ReportID: req.ReportID,
		Area:     report.Area,
		Status:   models.StatusResolved,
		Actor:    actor,
	})

	respondData(w, http.StatusCreated, map[string]interface{}{
		"solution_id":   id,
		"report_id":     req.ReportID,
		"report_status": models.StatusResolved,
	})
}

// ListSolutions handles GET /api/v1/solutions.
func (h *Handler) ListSolutions(w http.ResponseWriter, r *http.Request) {
	solutions, err := h.store.GetSolutions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list solutions", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"count":     len(solutions),
		"solutions": solutions,
	})
}
