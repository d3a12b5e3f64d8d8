// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package config loads and validates hub configuration using Koanf v2 with
// layered sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the hub.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Gemini   GeminiConfig   `koanf:"gemini"`
	WhatsApp WhatsAppConfig `koanf:"whatsapp"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// StoreConfig holds settings for the embedded report/user store.
type StoreConfig struct {
	// Path is the BadgerDB data directory. Empty means in-memory
	// (useful for tests and ephemeral deployments).
	Path string `koanf:"path"`
}

// GeminiConfig holds settings for the image analysis service.
type GeminiConfig struct {
	Enabled bool   `koanf:"enabled"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
}

// WhatsAppConfig holds settings for the Green-API outbound gateway.
type WhatsAppConfig struct {
	Enabled    bool   `koanf:"enabled"`
	IDInstance string `koanf:"id_instance"`
	APIToken   string `koanf:"api_token"`
	BaseURL    string `koanf:"base_url"`
	// SendsPerSecond caps outbound message rate toward the gateway.
	SendsPerSecond float64 `koanf:"sends_per_second"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Gemini.Enabled && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required when gemini.enabled is true")
	}
	if c.WhatsApp.Enabled && (c.WhatsApp.IDInstance == "" || c.WhatsApp.APIToken == "") {
		return fmt.Errorf("whatsapp.id_instance and whatsapp.api_token are required when whatsapp.enabled is true")
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	return nil
}
