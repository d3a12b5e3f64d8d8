// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package store persists users, reports, solutions, and the audit trail.
//
// The store is modeled after a push-ID keyed document store: reports and
// solutions get server-generated IDs, users are keyed by mobile number, and
// write timestamps are assigned by the server. BadgerStore is the embedded
// implementation; callers depend only on the Store interface.
package store

import (
	"context"
	"errors"

	"github.com/nagaralert/hub/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store is the persistence boundary consumed by the HTTP handlers and the
// alert orchestrator. Implementations must be safe for concurrent use.
type Store interface {
	// SaveUser inserts or replaces the user keyed by user.Mobile.
	// CreatedAt is assigned on first insert, UpdatedAt on every write.
	SaveUser(ctx context.Context, user *models.User) error

	// GetUsers returns all user profiles keyed by mobile number.
	GetUsers(ctx context.Context) (map[string]models.User, error)

	// GetUser returns the user with the given mobile number, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// SaveReport persists a new report, assigning its ID and server
	// timestamp. The assigned ID is returned and set on the report.
	SaveReport(ctx context.Context, report *models.Report) (string, error)

	// GetReports returns all reports keyed by ID.
	GetReports(ctx context.Context) (map[string]models.Report, error)

	// GetReport returns the report with the given ID, or ErrNotFound.
	GetReport(ctx context.Context, id string) (*models.Report, error)

	// UpdateReportStatus sets the status of an existing report.
	UpdateReportStatus(ctx context.Context, id, status string) error

	// SaveSolution persists a solution, assigning its ID and timestamp,
	// and marks the referenced report resolved with a back-link.
	SaveSolution(ctx context.Context, solution *models.Solution) (string, error)

	// GetSolutions returns all solutions keyed by ID.
	GetSolutions(ctx context.Context) (map[string]models.Solution, error)

	// AppendAuditEvent persists one report lifecycle event.
	AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error

	// RecentAuditEvents returns up to limit audit events, newest first.
	RecentAuditEvents(ctx context.Context, limit int) ([]models.AuditEvent, error)

	// Close releases the underlying resources.
	Close() error
}
