// Package llm defines the external language model capability consumed by the
// pipeline and its interchangeable provider implementations.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// ClassifyResult is the parsed output of a classification call. A nil result
// from a provider means abstention or unparseable output, never an error.
type ClassifyResult struct {
	EventCategory string `json:"event_category"`
	Abstained     bool   `json:"abstained"`
}

// FieldCandidate is one proposed field value with its claimed evidence.
type FieldCandidate struct {
	Value     any      `json:"value"`
	Evidence  string   `json:"evidence"`
	Citations []string `json:"citations"`
}

// ExtractResult is the parsed output of an extraction call.
type ExtractResult struct {
	Fields map[string]FieldCandidate `json:"fields"`
}

// Provider is the capability contract: both operations run at near-zero
// temperature for determinism. Implementations return a nil result (not an
// error) when the model's output cannot be parsed.
type Provider interface {
	Name() string
	Classify(ctx context.Context, prompt string) (*ClassifyResult, error)
	Extract(ctx context.Context, prompt string) (*ExtractResult, error)
}

// cleanJSON strips markdown fences and surrounding prose so the remaining
// text is (hopefully) a bare JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseClassify decodes a classification response body. Returns nil on
// unparseable output.
func parseClassify(text string) *ClassifyResult {
	var out ClassifyResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return nil
	}
	return &out
}

// parseExtract decodes an extraction response body. Returns nil on
// unparseable output or when no fields were returned.
func parseExtract(text string) *ExtractResult {
	var out ExtractResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return nil
	}
	if out.Fields == nil {
		return nil
	}
	return &out
}
