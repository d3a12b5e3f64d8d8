// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/nagaralert/hub/internal/logging"
)

// WebhookTypeIncoming is the only Green-API notification type the hub
// replies to. Everything else (outgoing echoes, state changes) is ignored so
// the bot never answers its own messages.
const WebhookTypeIncoming = "incomingMessageReceived"

// WebhookPayload is a Green-API notification. The text can arrive in three
// shapes depending on the client that sent it.
type WebhookPayload struct {
	TypeWebhook string      `json:"typeWebhook"`
	MessageData MessageData `json:"messageData"`
}

// MessageData carries the message body and sender details.
type MessageData struct {
	ChatID                  string                   `json:"chatId"`
	TextMessage             string                   `json:"textMessage"`
	SenderData              SenderData               `json:"senderData"`
	TextMessageData         *TextMessageData         `json:"textMessageData"`
	ExtendedTextMessageData *ExtendedTextMessageData `json:"extendedTextMessageData"`
}

// SenderData identifies the message author.
type SenderData struct {
	SenderName        string `json:"senderName"`
	SenderContactName string `json:"senderContactName"`
}

// TextMessageData holds a plain text message body.
type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

// ExtendedTextMessageData holds the body of quoted replies.
type ExtendedTextMessageData struct {
	Text string `json:"text"`
}

// Text returns the message body, checking the three places Green-API puts
// it. Empty means the notification carried no usable text.
func (m MessageData) Text() string {
	if m.TextMessageData != nil && m.TextMessageData.TextMessage != "" {
		return m.TextMessageData.TextMessage
	}
	if m.TextMessage != "" {
		return m.TextMessage
	}
	if m.ExtendedTextMessageData != nil {
		return m.ExtendedTextMessageData.Text
	}
	return ""
}

// Phone extracts the bare mobile number from the chat ID
// ("919876543210@c.us" -> "919876543210").
func (m MessageData) Phone() string {
	id, _, _ := strings.Cut(m.ChatID, "@")
	return id
}

// WebhookResult describes how the hub handled a notification.
type WebhookResult struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	ReplySent string `json:"reply_sent,omitempty"`
}

// Responder answers incoming WhatsApp messages with canned replies keyed on
// the message text.
type Responder struct {
	sender Sender
}

// NewResponder returns a Responder that replies through the given sender.
func NewResponder(sender Sender) *Responder {
	return &Responder{sender: sender}
}

// Handle processes one webhook notification. Non-incoming notifications and
// text-less messages are acknowledged without a reply. Send failures are
// reported in the result, not returned, so the webhook endpoint always
// answers the provider with 200.
func (r *Responder) Handle(ctx context.Context, payload *WebhookPayload) WebhookResult {
	if payload.TypeWebhook != WebhookTypeIncoming {
		return WebhookResult{Status: "ignored", Reason: "not_incoming_message"}
	}

	text := payload.MessageData.Text()
	if text == "" {
		return WebhookResult{Status: "ignored", Reason: "no_text_content"}
	}

	phone := payload.MessageData.Phone()
	sender := payload.MessageData.SenderData.SenderName
	if sender == "" {
		sender = "Unknown"
	}

	logging.Ctx(ctx).Info().
		Str("component", "gateway").
		Str("sender", sender).
		Msg("incoming whatsapp message")

	reply := r.replyFor(text, sender)
	if err := r.sender.SendMessage(ctx, ChatID(phone), reply); err != nil {
		logging.Ctx(ctx).Err(err).
			Str("component", "gateway").
			Str("phone", phone).
			Msg("auto-reply failed")
		return WebhookResult{Status: "error", Reason: err.Error()}
	}
	return WebhookResult{Status: "replied", ReplySent: reply}
}

func (r *Responder) replyFor(text, sender string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return fmt.Sprintf("Hello %s!\n\nWelcome to NagarAlert Hub.\n\nType 'Report' to file a complaint.\nType 'Status' to check your reports.", sender)
	case strings.Contains(lower, "report"):
		return "To report an incident, please open the NagarAlert app and use the 'Report Incident' feature for verified location tracking."
	default:
		return fmt.Sprintf("You said: '%s'.\n\nI am an automated bot. Type 'Hello' to see options.", text)
	}
}
