// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package models defines the domain entities shared across the hub: reports,
// users, solutions, and the standard API response envelope.
package models

import "time"

// Report lifecycle statuses. A report starts pending (or verified when the
// image analysis is confident), is verified or rejected by an administrator,
// and is resolved when a solution is recorded.
const (
	StatusPending  = "Pending Verification"
	StatusVerified = "Verified"
	StatusRejected = "Rejected"
	StatusResolved = "Resolved"
)

// Location is a WGS84 coordinate pair attached to reports and user profiles.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// AIAnalysis carries the image analysis verdict stored with a report.
// Raw preserves the analysis service's full free-text response.
type AIAnalysis struct {
	Raw          string  `json:"raw"`
	DetectedType string  `json:"detectedType"`
	Severity     string  `json:"severity,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Report is a citizen-submitted incident report.
type Report struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Category    string     `json:"category"`
	Area        string     `json:"area,omitempty"`
	Location    Location   `json:"location"`
	Description string     `json:"description"`
	AIAnalysis  AIAnalysis `json:"aiAnalysis"`
	Status      string     `json:"status"`
	SolutionID  string     `json:"solutionId,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// User is a registered citizen or administrator, keyed by mobile number.
// PasswordHash is a bcrypt hash; API handlers must not serialize User
// directly, they return a profile summary without the hash.
type User struct {
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         string    `json:"role"`
	Department   string    `json:"department,omitempty"`
	Address      string    `json:"address,omitempty"`
	ZipCode      string    `json:"zipCode,omitempty"`
	Country      string    `json:"country,omitempty"`
	Area         string    `json:"area,omitempty"`
	Location     *Location `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastActive   time.Time `json:"lastActive,omitempty"`
}

// Solution records how an administrator resolved a report.
type Solution struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"reportId"`
	AdminID     string    `json:"adminId"`
	AdminName   string    `json:"adminName"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SolvedAt    time.Time `json:"solvedAt"`
}
