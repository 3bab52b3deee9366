package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/schema"
)

// Provenance tags recorded in enrichment_meta.field_sources.
const (
	sourceDefault = "default"
	sourcePrefix  = "llm_"
)

// reasonNoMissing is the completed-step reason when every required field is
// already present. This is a success path, not a skip.
const reasonNoMissing = "No missing required fields"

func buildExtractPrompt(sch *schema.ExtractionSchema, missing []string, eventContext string) string {
	var b strings.Builder
	b.WriteString("You are filling in missing fields for a cultural event listing (")
	b.WriteString(sch.BatchDescription)
	b.WriteString(").\n\nEvent:\n")
	b.WriteString(eventContext)
	b.WriteString("\nMissing fields:\n")
	for _, name := range missing {
		spec := sch.Fields[name]
		b.WriteString("- ")
		b.WriteString(name)
		if spec.Description != "" {
			b.WriteString(": ")
			b.WriteString(spec.Description)
		}
		if spec.DynamicGuidance != "" {
			b.WriteString(" (")
			b.WriteString(spec.DynamicGuidance)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nFor each field, provide the value together with its evidence. ")
	b.WriteString(`Use evidence "substring" only when the value appears verbatim in the event text above; `)
	b.WriteString(`use evidence "citation" with source URLs for externally researched values. `)
	b.WriteString("Omit fields you cannot support with evidence.\n")
	b.WriteString("Respond with a valid JSON object: ")
	b.WriteString(`{"fields": {"<field>": {"value": <value>, "evidence": "substring"|"citation", "citations": ["<url>"]}}}`)
	return b.String()
}

// enrich fills in missing required fields. Exactly one extraction request is
// made per call, never retried; every offered value passes the evidence check
// or is dropped. A provider failure marks the step failed and is counted, but
// the pipeline continues so validation still sees the event.
func (o *Orchestrator) enrich(ctx context.Context, evt model.Event, sch *schema.ExtractionSchema, meta *model.EnrichmentMeta) {
	// Venue defaults fill missing required fields before the model is
	// consulted. An event with nothing missing is never touched.
	var missing []string
	for _, name := range sch.RequiredFields() {
		if !evt.Empty(name) {
			continue
		}
		if spec := sch.Fields[name]; spec.DefaultValue != nil {
			evt[name] = spec.DefaultValue
			meta.FieldSources[name] = sourceDefault
			continue
		}
		missing = append(missing, name)
	}

	if len(missing) == 0 {
		meta.PolicyReason = reasonNoMissing
		meta.Status = model.StatusCompleted
		return
	}

	eventContext := buildEventContext(evt)
	meta.ExtractionMethod = o.provider.Name()

	res, err := o.provider.Extract(ctx, buildExtractPrompt(sch, missing, eventContext))
	if err != nil || res == nil {
		if err != nil {
			meta.Error = err.Error()
			zap.L().Warn("enrich: provider call failed",
				zap.String("title", evt.Title()),
				zap.Error(err),
			)
		} else {
			meta.Error = "provider returned no parseable fields"
			zap.L().Warn("enrich: unparseable provider response",
				zap.String("title", evt.Title()),
			)
		}
		meta.Status = model.StatusFailed
		o.telemetry.RecordEnrichmentFailure()
		return
	}

	requested := make(map[string]bool, len(missing))
	for _, name := range missing {
		requested[name] = true
	}

	for name, cand := range res.Fields {
		// The model is never trusted to stay in scope: extraneous fields are
		// dropped without counting.
		if !requested[name] {
			continue
		}

		if !acceptEvidence(cand.Value, cand.Evidence, cand.Citations, eventContext) {
			o.telemetry.RecordFieldRejected()
			zap.L().Debug("enrich: rejected field candidate",
				zap.String("title", evt.Title()),
				zap.String("field", name),
				zap.String("evidence", cand.Evidence),
			)
			continue
		}

		evt[name] = cand.Value
		meta.FieldSources[name] = sourcePrefix + cand.Evidence
		if len(cand.Citations) > 0 {
			meta.Citations[name] = cand.Citations
		}
		o.telemetry.RecordFieldAccepted()
	}

	meta.Status = model.StatusCompleted
}
