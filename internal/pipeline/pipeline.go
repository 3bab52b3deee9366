// Package pipeline implements the classification, enrichment, and validation
// pipeline over normalized event records, driven by the curation document.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/culturefeed/curator-cli/internal/curation"
	"github.com/culturefeed/curator-cli/internal/llm"
	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/schema"
)

const zipRulePairwise = curation.ZipRulePairwise

// Policy reasons recorded when a venue's configuration gates a step.
const (
	reasonAssumedCategory        = "classification disabled; assumed category applied"
	reasonClassificationDisabled = "classification disabled; no assumed category"
	reasonEnrichmentDisabled     = "enrichment disabled by venue policy"
	reasonNoCategory             = "no category determined; enrichment skipped"
)

// Orchestrator sequences classification, enrichment, and validation for one
// event at a time. Construct one per worker and merge telemetry afterward
// rather than sharing a single instance across goroutines.
type Orchestrator struct {
	doc       *curation.Document
	resolver  *schema.Resolver
	provider  llm.Provider
	telemetry *Telemetry
}

// NewOrchestrator creates an orchestrator over a loaded curation document.
// A nil telemetry gets a fresh accumulator.
func NewOrchestrator(doc *curation.Document, provider llm.Provider, telemetry *Telemetry) *Orchestrator {
	if telemetry == nil {
		telemetry = NewTelemetry()
	}
	return &Orchestrator{
		doc:       doc,
		resolver:  schema.NewResolver(doc),
		provider:  provider,
		telemetry: telemetry,
	}
}

// Telemetry returns the orchestrator's accumulator.
func (o *Orchestrator) Telemetry() *Telemetry {
	return o.telemetry
}

// Result carries the mutated event plus its validation outcome. Validation
// failures are data, not errors: FailFast tells the caller the venue's
// policy demands aborting the batch, and the caller decides.
type Result struct {
	Event            model.Event
	Venue            string
	ValidationErrors []string
	FailFast         bool
}

// Failed reports whether the event failed validation.
func (r *Result) Failed() bool {
	return len(r.ValidationErrors) > 0
}

// RunEnrichment drives one event through the pipeline, mutating it in place.
// A non-nil error means a configuration problem (unknown venue, broken
// template); classification and enrichment degradations surface through the
// event's metadata and telemetry instead.
func (o *Orchestrator) RunEnrichment(ctx context.Context, evt model.Event, venueKey string) (*Result, error) {
	venue, err := o.doc.Venue(venueKey)
	if err != nil {
		return nil, err
	}

	meta := model.NewEnrichmentMeta()
	evt.SetMeta(meta)

	// Classification.
	meta.Step = model.StepClassification
	switch {
	case venue.Classification.Enabled:
		evt.SetCategory(o.classify(ctx, evt, meta))
	case venue.Classification.AssumedEventCategory != "":
		evt.SetCategory(venue.Classification.AssumedEventCategory)
		meta.PolicyReason = reasonAssumedCategory
	default:
		evt.SetCategory("")
		meta.PolicyReason = reasonClassificationDisabled
	}

	category, categorized := evt.Category()

	// The resolved schema serves both enrichment and validation.
	var sch *schema.ExtractionSchema
	if categorized {
		sch, err = o.resolver.Resolve(venueKey, category)
		if err != nil {
			return nil, err
		}
	}

	// Enrichment.
	switch {
	case !venue.Enrichment.Enabled:
		meta.PolicyReason = reasonEnrichmentDisabled
		meta.Status = model.StatusSkipped
	case !categorized:
		meta.PolicyReason = reasonNoCategory
		meta.Status = model.StatusSkipped
	default:
		meta.Step = model.StepEnrichment
		o.enrich(ctx, evt, sch, meta)
	}

	// Validation always runs, and accumulates every violation.
	meta.Step = model.StepValidation
	errs := o.validate(evt, sch)

	if len(errs) > 0 {
		meta.Status = model.StatusFailed
		meta.ValidationErrors = errs
		o.telemetry.RecordMissingRequired(model.MissingFieldIncident{
			Venue:  venueKey,
			Title:  evt.Title(),
			Errors: errs,
		})
	} else if meta.Status != model.StatusSkipped && meta.Status != model.StatusFailed {
		meta.Status = model.StatusCompleted
	}

	zap.L().Info("pipeline: event processed",
		zap.String("venue", venueKey),
		zap.String("title", evt.Title()),
		zap.String("category", category),
		zap.String("status", string(meta.Status)),
		zap.Int("validation_errors", len(errs)),
	)

	return &Result{
		Event:            evt,
		Venue:            venueKey,
		ValidationErrors: errs,
		FailFast:         venue.FailFast && len(errs) > 0,
	}, nil
}
