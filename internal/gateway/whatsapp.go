// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package gateway sends WhatsApp messages through the Green-API instance
// backing the hub's notification channel.
//
// The sender is wrapped in a circuit breaker so a dead Green-API instance
// degrades area alerts instead of stalling them, and an outbound rate
// limiter keeps sends under the provider's per-second cap.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/nagaralert/hub/internal/config"
	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/metrics"
)

// Sender delivers one text message to a WhatsApp chat ID. Implementations
// must be safe for concurrent use; the alert orchestrator fans sends out in
// parallel.
type Sender interface {
	SendMessage(ctx context.Context, chatID, message string) error
}

// ChatID converts a bare mobile number into a Green-API chat identifier.
func ChatID(mobile string) string {
	return mobile + "@c.us"
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	IDMessage string `json:"idMessage"`
}

// GreenAPISender sends messages through a Green-API WhatsApp instance.
type GreenAPISender struct {
	baseURL    string
	idInstance string
	apiToken   string
	client     *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[string]
}

// NewGreenAPISender builds a sender from the WhatsApp gateway configuration.
func NewGreenAPISender(cfg *config.WhatsAppConfig) *GreenAPISender {
	sends := cfg.SendsPerSecond
	if sends <= 0 {
		sends = 2
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "green-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("component", "gateway").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &GreenAPISender{
		baseURL:    cfg.BaseURL,
		idInstance: cfg.IDInstance,
		apiToken:   cfg.APIToken,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(sends), 1),
		cb:      cb,
	}
}

// SendMessage posts one text message to the chat. It blocks on the rate
// limiter, then runs the HTTP call under the circuit breaker. Rejections
// from an open breaker come back as errors so callers can count the send as
// failed without waiting on a timeout.
func (s *GreenAPISender) SendMessage(ctx context.Context, chatID, message string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	messageID, err := s.cb.Execute(func() (string, error) {
		return s.post(ctx, chatID, message)
	})
	if err != nil {
		metrics.WhatsAppSends.WithLabelValues("failed").Inc()
		return err
	}

	metrics.WhatsAppSends.WithLabelValues("sent").Inc()
	logging.Debug().
		Str("component", "gateway").
		Str("chat_id", chatID).
		Str("message_id", messageID).
		Msg("whatsapp message sent")
	return nil
}

func (s *GreenAPISender) post(ctx context.Context, chatID, message string) (string, error) {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Message: message})
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", s.baseURL, s.idInstance, s.apiToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for the error message.
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("green-api returned %d: %s", resp.StatusCode, data)
	}

	var parsed sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	return parsed.IDMessage, nil
}
