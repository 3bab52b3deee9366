package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/culturefeed/curator-cli/internal/model"
)

func newTestPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS events").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEvent(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(pgxmock.AnyArg(), "cinema", "Mystery Train", "movie", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	evt := model.Event{"title": "Mystery Train", "event_category": "movie"}
	evt.SetMeta(&model.EnrichmentMeta{Status: model.StatusCompleted})

	saved, err := s.SaveEvent(context.Background(), NewEventRecord("cinema", evt))

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEventNullCategory(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(pgxmock.AnyArg(), "listings", "Unclassified", nil, "skipped", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := s.SaveEvent(context.Background(), EventRecord{
		Venue:   "listings",
		Title:   "Unclassified",
		Status:  "skipped",
		Payload: model.Event{"title": "Unclassified"},
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListEvents(t *testing.T) {
	s, mock := newTestPostgres(t)

	payload, err := json.Marshal(model.Event{"title": "Mystery Train"})
	require.NoError(t, err)

	category := "movie"
	rows := pgxmock.NewRows([]string{"id", "venue", "title", "category", "status", "payload", "created_at"}).
		AddRow("id-1", "cinema", "Mystery Train", &category, "completed", payload, time.Now().UTC())

	mock.ExpectQuery("SELECT id, venue, title, category, status, payload, created_at FROM events").
		WithArgs("cinema", 10).
		WillReturnRows(rows)

	records, err := s.ListEvents(context.Background(), EventFilter{Venue: "cinema", Limit: 10})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "movie", records[0].Category)
	assert.Equal(t, "Mystery Train", records[0].Payload.Title())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveTelemetry(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO telemetry")).
		WithArgs(pgxmock.AnyArg(), "run-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	snap := model.TelemetrySnapshot{TotalClassifications: 3, CollectedAt: time.Now().UTC()}
	require.NoError(t, s.SaveTelemetry(context.Background(), "run-1", snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestTelemetry(t *testing.T) {
	s, mock := newTestPostgres(t)

	data, err := json.Marshal(model.TelemetrySnapshot{TotalClassifications: 5, Abstentions: 1})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT snapshot FROM telemetry").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}).AddRow(data))

	snap, err := s.LatestTelemetry(context.Background())

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 5, snap.TotalClassifications)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestTelemetryEmpty(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT snapshot FROM telemetry").
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.LatestTelemetry(context.Background())

	require.NoError(t, err)
	assert.Nil(t, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}
