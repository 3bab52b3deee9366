package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/culturefeed/curator-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	venue      TEXT NOT NULL,
	title      TEXT NOT NULL,
	category   TEXT,
	status     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS telemetry (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	snapshot     TEXT NOT NULL,
	collected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_venue ON events(venue);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE INDEX IF NOT EXISTS idx_telemetry_collected_at ON telemetry(collected_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, rec EventRecord) (*EventRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal event payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, venue, title, category, status, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Venue, rec.Title, nullString(rec.Category), rec.Status, string(payload), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert event")
	}
	return &rec, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error) {
	query := `SELECT id, venue, title, category, status, payload, created_at FROM events WHERE 1=1`
	var args []any
	if filter.Venue != "" {
		query += ` AND venue = ?`
		args = append(args, filter.Venue)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var category sql.NullString
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Venue, &rec.Title, &category, &rec.Status, &payload, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		rec.Category = category.String
		if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal event payload")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate events")
}

func (s *SQLiteStore) SaveTelemetry(ctx context.Context, runID string, snap model.TelemetrySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal telemetry")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO telemetry (id, run_id, snapshot, collected_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), runID, string(data), snap.CollectedAt,
	)
	return eris.Wrap(err, "sqlite: insert telemetry")
}

func (s *SQLiteStore) LatestTelemetry(ctx context.Context) (*model.TelemetrySnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM telemetry ORDER BY collected_at DESC LIMIT 1`,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest telemetry")
	}
	var snap model.TelemetrySnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal telemetry")
	}
	return &snap, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
