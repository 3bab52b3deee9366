package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/culturefeed/curator-cli/internal/model"
)

// fallbackLabel is applied when the model returns a label outside the
// ontology and the ontology itself carries an "other" bucket.
const fallbackLabel = "other"

// unknownSentinel is the label the model is instructed to return when it
// cannot choose confidently.
const unknownSentinel = "unknown"

// contextFields is the fixed order of event fields concatenated into the
// classification and extraction context. Order is fixed so prompts are
// deterministic for identical events.
var contextFields = []string{
	"title",
	"description",
	"venue",
	"url",
	"dates",
	"times",
	"series",
	"program",
	"tags",
}

// buildEventContext renders the event as one labeled line per present field,
// in fixed order.
func buildEventContext(evt model.Event) string {
	var b strings.Builder
	for _, field := range contextFields {
		if evt.Empty(field) {
			continue
		}
		values := evt.Strings(field)
		if len(values) == 0 {
			continue
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(values, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func buildClassifyPrompt(labels []string, eventContext string) string {
	var b strings.Builder
	b.WriteString("Classify the following cultural event into exactly one of these categories:\n")
	for _, label := range labels {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString("\n")
	}
	b.WriteString("\nChoose the single best category. If you are not confident, ")
	b.WriteString(`return the category "Unknown" and set abstained to true.`)
	b.WriteString("\nRespond with a valid JSON object: ")
	b.WriteString(`{"event_category": "<category>", "abstained": <true|false>}`)
	b.WriteString("\n\nEvent:\n")
	b.WriteString(eventContext)
	return b.String()
}

// classify maps the event to one ontology label or abstains. Abstention is a
// first-class outcome: provider failures and unparseable replies abstain,
// they never fail the pipeline.
func (o *Orchestrator) classify(ctx context.Context, evt model.Event, meta *model.EnrichmentMeta) string {
	prompt := buildClassifyPrompt(o.doc.Ontology.Labels, buildEventContext(evt))

	abstain := func(reason string) string {
		meta.Abstained = true
		o.telemetry.RecordAbstention()
		zap.L().Debug("classify: abstained",
			zap.String("title", evt.Title()),
			zap.String("reason", reason),
		)
		return ""
	}

	res, err := o.provider.Classify(ctx, prompt)
	if err != nil {
		zap.L().Warn("classify: provider call failed",
			zap.String("title", evt.Title()),
			zap.Error(err),
		)
		return abstain("provider call failed")
	}
	if res == nil {
		return abstain("unparseable response")
	}

	label := strings.ToLower(strings.TrimSpace(res.EventCategory))
	switch {
	case res.Abstained || label == "" || label == unknownSentinel:
		return abstain("model abstained")
	case o.doc.Ontology.Contains(label):
		o.telemetry.RecordClassification(label)
		return label
	case o.doc.Ontology.Contains(fallbackLabel):
		zap.L().Debug("classify: label outside ontology, using fallback",
			zap.String("title", evt.Title()),
			zap.String("returned", label),
		)
		o.telemetry.RecordClassification(fallbackLabel)
		return fallbackLabel
	default:
		return abstain("label outside ontology")
	}
}
