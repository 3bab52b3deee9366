// Package store persists enriched events and telemetry snapshots behind a
// driver-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/culturefeed/curator-cli/internal/config"
	"github.com/culturefeed/curator-cli/internal/model"
)

// EventRecord is one persisted pipeline result.
type EventRecord struct {
	ID        string      `json:"id"`
	Venue     string      `json:"venue"`
	Title     string      `json:"title"`
	Category  string      `json:"category,omitempty"`
	Status    string      `json:"status"`
	Payload   model.Event `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// EventFilter specifies criteria for listing events.
type EventFilter struct {
	Venue  string `json:"venue,omitempty"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Events
	SaveEvent(ctx context.Context, rec EventRecord) (*EventRecord, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error)

	// Telemetry
	SaveTelemetry(ctx context.Context, runID string, snap model.TelemetrySnapshot) error
	LatestTelemetry(ctx context.Context) (*model.TelemetrySnapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from config, selecting the driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// NewEventRecord builds a record from a processed event.
func NewEventRecord(venue string, evt model.Event) EventRecord {
	rec := EventRecord{
		Venue:   venue,
		Title:   evt.Title(),
		Payload: evt,
	}
	if category, ok := evt.Category(); ok {
		rec.Category = category
	}
	if meta := evt.Meta(); meta != nil {
		rec.Status = string(meta.Status)
	}
	return rec
}
