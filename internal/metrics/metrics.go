// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package metrics defines the Prometheus collectors exposed on /metrics.
//
// Collectors are registered with the default registry at package load so
// every component can record without wiring. Names follow the
// nagaralert_<subsystem>_<metric> convention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WSConnections tracks the number of live WebSocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nagaralert_ws_connections",
		Help: "Number of live WebSocket connections.",
	})

	// BroadcastsTotal counts broadcast operations by outcome of the batch.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nagaralert_broadcasts_total",
		Help: "Total number of alert broadcast operations.",
	})

	// BroadcastDeliveries counts per-recipient push outcomes.
	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagaralert_broadcast_deliveries_total",
		Help: "Per-recipient push outcomes during broadcasts.",
	}, []string{"outcome"}) // delivered, evicted

	// WhatsAppSends counts outbound gateway sends by outcome.
	WhatsAppSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagaralert_whatsapp_sends_total",
		Help: "Outbound WhatsApp gateway sends by outcome.",
	}, []string{"outcome"}) // sent, failed

	// AreaAlertsTotal counts orchestrated area notifications by status.
	AreaAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagaralert_area_alerts_total",
		Help: "Area alert orchestrations by completion status.",
	}, []string{"status"}) // completed, degraded

	// ReportsSubmitted counts report submissions by initial status.
	ReportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nagaralert_reports_submitted_total",
		Help: "Citizen report submissions by initial status.",
	}, []string{"status"})

	// HTTPDuration observes request latency per route and status class.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nagaralert_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
