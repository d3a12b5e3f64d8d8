// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package realtime

// Message types for the WebSocket control protocol.
const (
	MessageTypeAlert               = "alert"
	MessageTypeSubscribe           = "subscribe"
	MessageTypeSubscriptionConfirm = "subscription_confirmed"
	MessageTypePing                = "ping"
	MessageTypePong                = "pong"
)

// Envelope is the outbound push frame:
//
//	{"type": "alert", "timestamp": "2026-08-30T12:00:00Z", "data": {...}}
//
// Data is opaque caller payload, passed through unmodified.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// inboundMessage is a client control message. Unknown types and malformed
// frames are ignored without a response.
type inboundMessage struct {
	Type  string   `json:"type"`
	Areas []string `json:"areas"`
}

// subscriptionConfirmation acknowledges a subscribe message.
type subscriptionConfirmation struct {
	Type    string   `json:"type"`
	Areas   []string `json:"areas"`
	Message string   `json:"message"`
}

// pongMessage answers a keep-alive ping.
type pongMessage struct {
	Type string `json:"type"`
}
