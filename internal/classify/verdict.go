// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package classify

import (
	"strings"

	"github.com/goccy/go-json"
)

// Verdict is the structured classification extracted from a model response.
type Verdict struct {
	IsCivicIssue bool    `json:"is_civic_issue"`
	IssueType    string  `json:"issue_type"`
	Severity     string  `json:"severity"`
	Description  string  `json:"description"`
	Confidence   float64 `json:"-"`
}

// issueKeywords trip the keyword fallback when the model answers in prose
// instead of JSON.
var issueKeywords = []string{"pothole", "garbage", "fire", "accident", "streetlight", "street light", "flood"}

// ParseVerdict extracts a Verdict from raw model output. It tries JSON
// first, tolerating markdown code fences around the object. When no JSON
// can be recovered it falls back to keyword matching on the raw text, the
// same heuristic the verification pipeline started with. Confidence is 0.95
// for a positive verdict and 0 otherwise.
func ParseVerdict(raw string) Verdict {
	if v, ok := parseJSONVerdict(raw); ok {
		if v.IsCivicIssue {
			v.Confidence = 0.95
		}
		return v
	}

	lower := strings.ToLower(raw)
	v := Verdict{IssueType: "N/A", Description: raw}
	for _, kw := range issueKeywords {
		if strings.Contains(lower, kw) {
			v.IsCivicIssue = true
			v.IssueType = "Verified Issue"
			v.Confidence = 0.95
			break
		}
	}
	if !v.IsCivicIssue && strings.Contains(lower, `"is_civic_issue": true`) {
		v.IsCivicIssue = true
		v.IssueType = "Verified Issue"
		v.Confidence = 0.95
	}
	return v
}

func parseJSONVerdict(raw string) (Verdict, bool) {
	text := strings.TrimSpace(raw)

	// Strip a markdown code fence if present.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	// Narrow to the outermost object in case the model added prose.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var v Verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return Verdict{}, false
	}
	if v.IssueType == "" {
		v.IssueType = "N/A"
	}
	return v, true
}
