// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package models

import "time"

// Report lifecycle event names published on the internal event bus.
const (
	EventReportCreated  = "report.created"
	EventReportVerified = "report.verified"
	EventReportResolved = "report.resolved"
)

// AuditEvent is one entry in the report lifecycle audit trail. Events are
// published on the in-process bus and persisted by the audit consumer.
type AuditEvent struct {
	ID        string            `json:"id"`
	Event     string            `json:"event"`
	ReportID  string            `json:"reportId"`
	Area      string            `json:"area,omitempty"`
	Status    string            `json:"status,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
