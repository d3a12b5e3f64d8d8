// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

// Package classify analyzes report photos with Gemini vision to pre-verify
// civic issues before they reach a human moderator.
package classify

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/nagaralert/hub/internal/config"
	"github.com/nagaralert/hub/internal/logging"
)

// CivicIssuePrompt asks the model for a machine-parseable verdict. The
// response is parsed leniently; see ParseVerdict.
const CivicIssuePrompt = `Analyze this image for civic issues like potholes, garbage, street light issues, or accidents.
Answer with a JSON object containing:
- "is_civic_issue": boolean
- "issue_type": string (e.g., "Pothole", "Garbage", "Traffic", "N/A")
- "severity": string ("Low", "Medium", "High")
- "description": short description of what you see`

// Analyzer produces a free-text analysis of an image. The text is opaque to
// callers; ParseVerdict extracts a structured verdict from it.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// GeminiAnalyzer implements Analyzer against the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer builds an analyzer from the Gemini configuration.
func NewGeminiAnalyzer(ctx context.Context, cfg *config.GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// AnalyzeImage sends the image and prompt to Gemini and returns the model's
// text response.
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if prompt == "" {
		prompt = CivicIssuePrompt
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}

	logging.Debug().
		Str("component", "classify").
		Str("model", g.model).
		Int("response_len", len(text)).
		Msg("image analyzed")
	return text, nil
}
