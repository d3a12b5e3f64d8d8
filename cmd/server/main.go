// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package main is the entry point for the NagarAlert hub server.
//
// The hub is a civic incident reporting backend: residents submit
// geotagged photo reports, an image classifier pre-screens them, and
// verified reports fan out as real-time alerts to WebSocket subscribers
// and WhatsApp recipients in the affected area.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config file (Koanf v2)
//  2. Store: Open BadgerDB for reports, users, solutions, and audit events
//  3. Realtime: Connection registry and area broadcast engine
//  4. Gateways: Green-API WhatsApp sender and Gemini image analyzer (both optional)
//  5. Events: In-process bus with a supervised audit trail consumer
//  6. HTTP Server: Chi router with JWT auth, rate limiting, and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see internal/config for the mapping table)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Optional integrations:
//   - Gemini: GEMINI_ENABLED=true, GOOGLE_GEMINI_API_KEY
//   - WhatsApp: WHATSAPP_ENABLED=true, GREEN_API_ID_INSTANCE, GREEN_API_API_TOKEN
//
// Without them the hub still accepts reports and serves WebSocket alerts;
// submissions simply stay Pending until an admin verifies them manually.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the event bus and closes the store
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nagaralert/hub/internal/alert"
	"github.com/nagaralert/hub/internal/api"
	"github.com/nagaralert/hub/internal/auth"
	"github.com/nagaralert/hub/internal/classify"
	"github.com/nagaralert/hub/internal/config"
	"github.com/nagaralert/hub/internal/events"
	"github.com/nagaralert/hub/internal/gateway"
	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/realtime"
	"github.com/nagaralert/hub/internal/store"
	"github.com/nagaralert/hub/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("store_path", cfg.Store.Path).
		Bool("gemini_enabled", cfg.Gemini.Enabled).
		Bool("whatsapp_enabled", cfg.WhatsApp.Enabled).
		Msg("Starting NagarAlert hub")

	st, err := store.NewBadgerStore(cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry)

	// Optional integrations stay nil when disabled; downstream components
	// treat nil collaborators as no-ops.
	var sender gateway.Sender
	var responder *gateway.Responder
	if cfg.WhatsApp.Enabled {
		greenAPI := gateway.NewGreenAPISender(&cfg.WhatsApp)
		sender = greenAPI
		responder = gateway.NewResponder(greenAPI)
		logging.Info().Msg("WhatsApp gateway enabled")
	} else {
		logging.Info().Msg("WhatsApp gateway disabled - alerts reach WebSocket clients only")
	}

	var analyzer classify.Analyzer
	if cfg.Gemini.Enabled {
		gemini, err := classify.NewGeminiAnalyzer(ctx, &cfg.Gemini)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize image analyzer")
		}
		analyzer = gemini
		logging.Info().Str("model", cfg.Gemini.Model).Msg("Image analysis enabled")
	} else {
		logging.Info().Msg("Image analysis disabled - reports stay pending until manual review")
	}

	orchestrator := alert.NewOrchestrator(st, sender, broadcaster)

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	consumer := events.NewAuditConsumer(bus, st)

	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)

	handler := api.NewHandler(cfg, st, registry, broadcaster, orchestrator, analyzer, responder, bus, jwtManager)
	middleware := api.NewMiddleware(&cfg.Security, jwtManager)
	router := api.NewRouter(handler, middleware).Setup()

	// Bridge zerolog to slog for supervisor lifecycle events
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(consumer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	tree.AddAPIService(supervisor.NewHTTPService(addr, router, cfg.Server.Timeout))

	logging.Info().Str("addr", addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree exited")
	}

	logging.Info().Msg("Shutdown complete")
}
