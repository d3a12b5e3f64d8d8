// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nagaralert/hub/internal/classify"
	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/metrics"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/store"
)

// maxUploadBytes bounds report photo uploads.
const maxUploadBytes = 10 << 20

// verifyRequest is the PATCH /reports/{id}/verify body.
type verifyRequest struct {
	Status string `json:"status" validate:"required,oneof=Verified Rejected Resolved"`
	Actor  string `json:"actor"`
}

// SubmitReport handles POST /api/v1/reports/submit. The photo is analyzed
// by the classifier when one is configured; a confident positive verdict
// auto-verifies the report, everything else stays pending for a human.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected multipart form with a photo", err)
		return
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "latitude must be a number", err)
		return
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "longitude must be a number", err)
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "coordinates out of range", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "photo file is required", err)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "could not read photo", err)
		return
	}

	category := r.FormValue("category")
	if category == "" {
		category = "Traffic"
	}
	userID := r.FormValue("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	report := &models.Report{
		UserID:      userID,
		Category:    category,
		Area:        r.FormValue("area"),
		Description: r.FormValue("description"),
		Location:    models.Location{Latitude: lat, Longitude: lng},
		Status:      models.StatusPending,
	}

	if h.analyzer != nil {
		raw, err := h.analyzer.AnalyzeImage(r.Context(), image, header.Header.Get("Content-Type"), classify.CivicIssuePrompt)
		if err != nil {
			// Classification is best-effort; the report still goes in.
			logging.Ctx(r.Context()).Warn().
				Str("component", "api").
				Err(err).
				Msg("image analysis failed, report stays pending")
		} else {
			verdict := classify.ParseVerdict(raw)
			report.AIAnalysis = models.AIAnalysis{
				Raw:          raw,
				DetectedType: verdict.IssueType,
				Severity:     verdict.Severity,
				Confidence:   verdict.Confidence,
			}
			if verdict.IsCivicIssue {
				report.Status = models.StatusVerified
			}
		}
	}

	id, err := h.store.SaveReport(r.Context(), report)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save report", err)
		return
	}

	metrics.ReportsSubmitted.WithLabelValues(report.Status).Inc()
	h.publishEvent(&models.AuditEvent{
		Event:    models.EventReportCreated,
		ReportID: id,
		Area:     report.Area,
		Status:   report.Status,
		Actor:    userID,
	})

	respondData(w, http.StatusCreated, map[string]interface{}{
		"report_id": id,
		"status":    report.Status,
		"analysis":  report.AIAnalysis,
	})
}

// ListReports handles GET /api/v1/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.GetReports(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list reports", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}

// VerifyReport handles PATCH /api/v1/reports/{id}/verify. Setting the
// status to Verified triggers the area alert fan-out; the aggregate result
// rides along in the response.
func (h *Handler) VerifyReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	report, err := h.store.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Report not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load report", err)
		return
	}

	if err := h.store.UpdateReportStatus(r.Context(), id, req.Status); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update report", err)
		return
	}

	actor := req.Actor
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		actor = claims.Mobile
	}

	payload := map[string]interface{}{
		"report_id": id,
		"status":    req.Status,
	}

	if req.Status == models.StatusVerified {
		issueType := report.AIAnalysis.DetectedType
		if issueType == "" || issueType == "N/A" {
			issueType = report.Category
		}
		result := h.orchestrator.NotifyArea(r.Context(), report.Area, issueType, map[string]interface{}{
			"report_id":   id,
			"category":    report.Category,
			"description": report.Description,
		})
		payload["notification"] = result

		h.publishEvent(&models.AuditEvent{
			Event:    models.EventReportVerified,
			ReportID: id,
			Area:     report.Area,
			Status:   req.Status,
			Actor:    actor,
		})
	} else if req.Status == models.StatusResolved {
		h.publishEvent(&models.AuditEvent{
			Event:    models.EventReportResolved,
			ReportID: id,
			Area:     report.Area,
			Status:   req.Status,
			Actor:    actor,
		})
	}

	respondData(w, http.StatusOK, payload)
}

// publishEvent emits a lifecycle event when the bus is wired.
func (h *Handler) publishEvent(event *models.AuditEvent) {
	if h.bus != nil {
		h.bus.Publish(event)
	}
}
