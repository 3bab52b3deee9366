package model

import "time"

// EnrichmentStatus indicates the terminal disposition of a pipeline run for
// one event.
type EnrichmentStatus string

// Enrichment status constants.
const (
	StatusStarted   EnrichmentStatus = "started"
	StatusCompleted EnrichmentStatus = "completed"
	StatusSkipped   EnrichmentStatus = "skipped"
	StatusFailed    EnrichmentStatus = "failed"
)

// Pipeline step names recorded in EnrichmentMeta.Step.
const (
	StepClassification = "classification"
	StepEnrichment     = "enrichment"
	StepValidation     = "validation"
)

// EnrichmentMeta is the per-event audit record built up as the event moves
// through the pipeline.
type EnrichmentMeta struct {
	Status           EnrichmentStatus    `json:"status"`
	Step             string              `json:"step,omitempty"`
	ExtractionMethod string              `json:"extraction_method,omitempty"`
	Abstained        bool                `json:"abstained,omitempty"`
	PolicyReason     string              `json:"policy_reason,omitempty"`
	FieldSources     map[string]string   `json:"field_sources"`
	Citations        map[string][]string `json:"citations,omitempty"`
	ValidationErrors []string            `json:"validation_errors,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// NewEnrichmentMeta creates metadata in the started state with empty
// provenance maps.
func NewEnrichmentMeta() *EnrichmentMeta {
	return &EnrichmentMeta{
		Status:       StatusStarted,
		FieldSources: make(map[string]string),
		Citations:    make(map[string][]string),
	}
}

// MissingFieldIncident records one event that failed validation, for the
// cross-event telemetry list.
type MissingFieldIncident struct {
	Venue  string   `json:"venue"`
	Title  string   `json:"title"`
	Errors []string `json:"errors"`
}

// TelemetrySnapshot is a point-in-time view of pipeline counters.
type TelemetrySnapshot struct {
	ClassificationsByLabel map[string]int         `json:"classifications_by_label"`
	TotalClassifications   int                    `json:"total_classifications"`
	Abstentions            int                    `json:"abstentions"`
	FieldsAccepted         int                    `json:"fields_accepted"`
	FieldsRejected         int                    `json:"fields_rejected"`
	MissingRequired        []MissingFieldIncident `json:"missing_required"`
	MissingRequiredCount   int                    `json:"missing_required_count"`
	EnrichmentFailures     int                    `json:"enrichment_failures"`
	CollectedAt            time.Time              `json:"collected_at"`
}
