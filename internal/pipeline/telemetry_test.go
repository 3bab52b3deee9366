package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/culturefeed/curator-cli/internal/model"
)

func TestTelemetry_Counters(t *testing.T) {
	tel := NewTelemetry()

	tel.RecordClassification("movie")
	tel.RecordClassification("movie")
	tel.RecordClassification("music")
	tel.RecordAbstention()
	tel.RecordFieldAccepted()
	tel.RecordFieldRejected()
	tel.RecordFieldRejected()
	tel.RecordEnrichmentFailure()
	tel.RecordMissingRequired(model.MissingFieldIncident{
		Venue:  "cinema",
		Title:  "Mystery Train",
		Errors: []string{"Missing required field: director"},
	})

	snap := tel.Snapshot()

	assert.Equal(t, 2, snap.ClassificationsByLabel["movie"])
	assert.Equal(t, 1, snap.ClassificationsByLabel["music"])
	assert.Equal(t, 3, snap.TotalClassifications)
	assert.Equal(t, 1, snap.Abstentions)
	assert.Equal(t, 1, snap.FieldsAccepted)
	assert.Equal(t, 2, snap.FieldsRejected)
	assert.Equal(t, 1, snap.EnrichmentFailures)
	assert.Equal(t, 1, snap.MissingRequiredCount)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestTelemetry_SnapshotIsACopy(t *testing.T) {
	tel := NewTelemetry()
	tel.RecordClassification("movie")
	tel.RecordMissingRequired(model.MissingFieldIncident{Venue: "cinema"})

	snap := tel.Snapshot()
	snap.ClassificationsByLabel["movie"] = 99
	snap.MissingRequired[0].Venue = "mutated"

	fresh := tel.Snapshot()
	assert.Equal(t, 1, fresh.ClassificationsByLabel["movie"])
	assert.Equal(t, "cinema", fresh.MissingRequired[0].Venue)
}

func TestTelemetry_Merge(t *testing.T) {
	a := NewTelemetry()
	a.RecordClassification("movie")
	a.RecordAbstention()
	a.RecordFieldAccepted()

	b := NewTelemetry()
	b.RecordClassification("movie")
	b.RecordClassification("music")
	b.RecordFieldRejected()
	b.RecordEnrichmentFailure()
	b.RecordMissingRequired(model.MissingFieldIncident{Venue: "arthouse"})

	a.Merge(b)
	snap := a.Snapshot()

	assert.Equal(t, 2, snap.ClassificationsByLabel["movie"])
	assert.Equal(t, 1, snap.ClassificationsByLabel["music"])
	assert.Equal(t, 3, snap.TotalClassifications)
	assert.Equal(t, 1, snap.Abstentions)
	assert.Equal(t, 1, snap.FieldsAccepted)
	assert.Equal(t, 1, snap.FieldsRejected)
	assert.Equal(t, 1, snap.EnrichmentFailures)
	assert.Len(t, snap.MissingRequired, 1)
}

func TestTelemetry_ConcurrentRecording(t *testing.T) {
	tel := NewTelemetry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tel.RecordClassification("movie")
				tel.RecordFieldAccepted()
			}
		}()
	}
	wg.Wait()

	snap := tel.Snapshot()
	assert.Equal(t, 800, snap.ClassificationsByLabel["movie"])
	assert.Equal(t, 800, snap.FieldsAccepted)
}
