// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP surface.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter builds the router from the handler set and middleware.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup wires all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	// Health endpoints stay unauthenticated and lightly limited so probes
	// never trip the API limiter.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Credential endpoints, strictly rate limited.
	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(router.middleware.RateLimitAuth()).Post("/register", router.handler.RegisterUser)
		r.With(router.middleware.RateLimitAuth()).Post("/login", router.handler.Login)

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.RateLimit())
			r.Use(PrometheusMetrics)
			r.Post("/update-location", router.handler.UpdateLocation)
			r.Get("/active", router.handler.ActiveUsers)
			r.Get("/{id}", router.handler.GetUser)

			r.With(router.middleware.Authenticate, router.middleware.RequireAdmin).
				Patch("/{id}", router.handler.PatchUser)
		})
	})

	// Report intake and lifecycle.
	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)

		r.Post("/submit", router.handler.SubmitReport)

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.Authenticate)
			r.Use(router.middleware.RequireAdmin)
			r.Get("/", router.handler.ListReports)
			r.Patch("/{id}/verify", router.handler.VerifyReport)
		})
	})

	// Solutions, admin only.
	r.Route("/api/v1/solutions", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)
		r.Use(router.middleware.Authenticate)
		r.Use(router.middleware.RequireAdmin)

		r.Post("/solve", router.handler.SolveReport)
		r.Get("/", router.handler.ListSolutions)
	})

	// Provider webhook; authenticated by obscurity of the instance URL on
	// the Green-API side, never rate limited below the provider's retry
	// cadence.
	r.Post("/api/v1/webhook/whatsapp", router.handler.WhatsAppWebhook)

	// Realtime endpoints. The upgrade request cannot carry a bearer header
	// from browsers, so /ws stays open; alerts are broadcast data anyway.
	r.Get("/api/v1/ws", router.handler.WebSocket)
	r.Get("/api/v1/ws/status", router.handler.WSStatus)

	// Audit trail, admin only.
	r.With(router.middleware.RateLimit(), router.middleware.Authenticate, router.middleware.RequireAdmin).
		Get("/api/v1/audit", router.handler.Audit)

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
