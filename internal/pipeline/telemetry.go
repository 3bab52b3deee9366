package pipeline

import (
	"sync"
	"time"

	"github.com/culturefeed/curator-cli/internal/model"
)

// Telemetry accumulates cross-event pipeline counters. All mutation goes
// through the mutex so a single instance may be shared across workers, though
// the batch runner prefers one instance per worker merged afterward.
type Telemetry struct {
	mu                     sync.Mutex
	classificationsByLabel map[string]int
	abstentions            int
	fieldsAccepted         int
	fieldsRejected         int
	missingRequired        []model.MissingFieldIncident
	enrichmentFailures     int
}

// NewTelemetry creates an empty accumulator. Counters reset only by
// constructing a new one.
func NewTelemetry() *Telemetry {
	return &Telemetry{
		classificationsByLabel: make(map[string]int),
	}
}

// RecordClassification counts one accepted classification for label.
func (t *Telemetry) RecordClassification(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classificationsByLabel[label]++
}

// RecordAbstention counts one classification abstention.
func (t *Telemetry) RecordAbstention() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.abstentions++
}

// RecordFieldAccepted counts one enriched field passing the evidence check.
func (t *Telemetry) RecordFieldAccepted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fieldsAccepted++
}

// RecordFieldRejected counts one enriched field failing the evidence check.
func (t *Telemetry) RecordFieldRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fieldsRejected++
}

// RecordMissingRequired appends one validation-failure incident.
func (t *Telemetry) RecordMissingRequired(incident model.MissingFieldIncident) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.missingRequired = append(t.missingRequired, incident)
}

// RecordEnrichmentFailure counts one failed enrichment step.
func (t *Telemetry) RecordEnrichmentFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enrichmentFailures++
}

// Merge folds other's counters into t. Used to combine per-worker
// accumulators after a batch drains.
func (t *Telemetry) Merge(other *Telemetry) {
	snap := other.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()
	for label, n := range snap.ClassificationsByLabel {
		t.classificationsByLabel[label] += n
	}
	t.abstentions += snap.Abstentions
	t.fieldsAccepted += snap.FieldsAccepted
	t.fieldsRejected += snap.FieldsRejected
	t.missingRequired = append(t.missingRequired, snap.MissingRequired...)
	t.enrichmentFailures += snap.EnrichmentFailures
}

// Snapshot returns a point-in-time copy of all counters.
func (t *Telemetry) Snapshot() model.TelemetrySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	byLabel := make(map[string]int, len(t.classificationsByLabel))
	total := 0
	for label, n := range t.classificationsByLabel {
		byLabel[label] = n
		total += n
	}

	incidents := make([]model.MissingFieldIncident, len(t.missingRequired))
	copy(incidents, t.missingRequired)

	return model.TelemetrySnapshot{
		ClassificationsByLabel: byLabel,
		TotalClassifications:   total,
		Abstentions:            t.abstentions,
		FieldsAccepted:         t.fieldsAccepted,
		FieldsRejected:         t.fieldsRejected,
		MissingRequired:        incidents,
		MissingRequiredCount:   len(incidents),
		EnrichmentFailures:     t.enrichmentFailures,
		CollectedAt:            time.Now().UTC(),
	}
}
