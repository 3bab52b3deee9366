package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/culturefeed/curator-cli/internal/model"
)

// Pool abstracts the pgxpool methods the store uses, so tests can substitute
// pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	venue      TEXT NOT NULL,
	title      TEXT NOT NULL,
	category   TEXT,
	status     TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS telemetry (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	snapshot     JSONB NOT NULL,
	collected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_venue ON events(venue);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE INDEX IF NOT EXISTS idx_telemetry_collected_at ON telemetry(collected_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveEvent(ctx context.Context, rec EventRecord) (*EventRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal event payload")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, venue, title, category, status, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Venue, rec.Title, nullString(rec.Category), rec.Status, payload, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert event")
	}
	return &rec, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]EventRecord, error) {
	query := `SELECT id, venue, title, category, status, payload, created_at FROM events WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Venue != "" {
		query += ` AND venue = ` + arg(filter.Venue)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var category *string
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Venue, &rec.Title, &category, &rec.Status, &payload, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		if category != nil {
			rec.Category = *category
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal event payload")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func (s *PostgresStore) SaveTelemetry(ctx context.Context, runID string, snap model.TelemetrySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal telemetry")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO telemetry (id, run_id, snapshot, collected_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), runID, data, snap.CollectedAt,
	)
	return eris.Wrap(err, "postgres: insert telemetry")
}

func (s *PostgresStore) LatestTelemetry(ctx context.Context) (*model.TelemetrySnapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM telemetry ORDER BY collected_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest telemetry")
	}
	var snap model.TelemetrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal telemetry")
	}
	return &snap, nil
}
