package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/culturefeed/curator-cli/internal/curation"
	"github.com/culturefeed/curator-cli/internal/llm"
	"github.com/culturefeed/curator-cli/internal/model"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Classify(ctx context.Context, prompt string) (*llm.ClassifyResult, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ClassifyResult), args.Error(1)
}

func (m *mockProvider) Extract(ctx context.Context, prompt string) (*llm.ExtractResult, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ExtractResult), args.Error(1)
}

// --- Fixtures ---

const testDocYAML = `
style:
  field_naming: snake_case
date_time_spec:
  date_field: dates
  time_field: times
  date_format: YYYY-MM-DD
  time_format: HH:mm
  zip_rule: pairwise_equal_length
ontology:
  labels:
    - movie
    - music
    - other
templates:
  movie:
    fields: [title, dates, times, director, rating, url]
    field_definitions:
      title:
        type: string
        description: Event title
      dates:
        type: array
        description: Screening dates
      times:
        type: array
        description: Start times
      director:
        type: string
        description: Film director
      rating:
        type: string
        description: Age rating
      url:
        type: string
        description: Listing URL
    required_on_publish: [title, dates, times, director]
  music:
    fields: [title, dates, times, performer]
    field_definitions:
      title:
        type: string
      dates:
        type: array
      times:
        type: array
      performer:
        type: string
    required_on_publish: [title, dates, times]
  other:
    fields: [title, dates, times]
    field_definitions:
      title:
        type: string
      dates:
        type: array
      times:
        type: array
    required_on_publish: [title]
venues:
  cinema:
    classification:
      enabled: true
    enrichment:
      enabled: true
  arthouse:
    classification:
      enabled: false
      assumed_event_category: movie
    enrichment:
      enabled: true
    fail_fast: true
    field_overrides:
      rating:
        required: true
        default_value: NR
      director:
        description_append: " (check the program notes)"
  listings:
    classification:
      enabled: false
    enrichment:
      enabled: true
  quiet:
    classification:
      enabled: true
    enrichment:
      enabled: false
`

func testDoc(t *testing.T) *curation.Document {
	t.Helper()
	doc, err := curation.Parse([]byte(testDocYAML))
	require.NoError(t, err)
	return doc
}

// movieEvent is a complete movie record for the cinema venue.
func movieEvent() model.Event {
	return model.Event{
		"title":       "Mystery Train",
		"description": "Triptych set in Memphis, directed by Jim Jarmusch.",
		"dates":       []any{"2026-03-01"},
		"times":       []any{"19:30"},
		"director":    "Jim Jarmusch",
		"url":         "https://cinema.example/mystery-train",
	}
}
