package store_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardwatch/disaster-etl/internal/adapter/store"
	"github.com/hazardwatch/disaster-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) (*store.Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	w, err := store.Open(path, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func fullEvent() domain.DisasterEvent {
	return domain.DisasterEvent{
		EventID:           "usgs_abc",
		EventType:         "earthquake",
		Title:             "M 6.5 - offshore",
		Description:       "strong quake",
		Latitude:          37.4,
		Longitude:         -122.1,
		Magnitude:         floatPtr(6.5),
		Severity:          domain.SeverityHigh,
		EventTime:         "2023-11-14 22:13:20 UTC",
		DetectedTime:      "2023-11-14T22:14:00Z",
		Source:            "USGS",
		RawData:           `{"id":"abc"}`,
		Address:           strPtr("1 Main St, Palo Alto, CA"),
		PopulationDensity: floatPtr(1234.5),
		ImpactScore:       0.82,
	}
}

func countEvents(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n))
	return n
}

func TestAppend_WritesBatch(t *testing.T) {
	w, path := openStore(t)

	a := fullEvent()
	b := fullEvent()
	b.EventID = "nasa_EONET_123"
	b.EventType = "wildfire"
	b.Source = "NASA"

	require.NoError(t, w.Append(context.Background(), []domain.DisasterEvent{a, b}))
	assert.Equal(t, 2, countEvents(t, path))
}

func TestAppend_RoundTripsAllColumns(t *testing.T) {
	w, path := openStore(t)
	event := fullEvent()
	require.NoError(t, w.Append(context.Background(), []domain.DisasterEvent{event}))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		eventType, severity, eventTime, source, address string
		magnitude, density, impact                      float64
	)
	row := db.QueryRow(`
		SELECT event_type, magnitude, severity, event_time, source, address, population_density, impact_score
		FROM events WHERE event_id = ?`, event.EventID)
	require.NoError(t, row.Scan(&eventType, &magnitude, &severity, &eventTime, &source, &address, &density, &impact))

	assert.Equal(t, "earthquake", eventType)
	assert.Equal(t, 6.5, magnitude)
	assert.Equal(t, domain.SeverityHigh, severity)
	assert.Equal(t, "2023-11-14 22:13:20 UTC", eventTime)
	assert.Equal(t, "USGS", source)
	assert.Equal(t, "1 Main St, Palo Alto, CA", address)
	assert.Equal(t, 1234.5, density)
	assert.Equal(t, 0.82, impact)
}

func TestAppend_DuplicateEventIDKeepsFirstWrite(t *testing.T) {
	w, path := openStore(t)

	first := fullEvent()
	require.NoError(t, w.Append(context.Background(), []domain.DisasterEvent{first}))

	replay := fullEvent()
	replay.ImpactScore = 0.1
	replay.Address = strPtr("somewhere else")
	require.NoError(t, w.Append(context.Background(), []domain.DisasterEvent{replay}))

	assert.Equal(t, 1, countEvents(t, path))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var impact float64
	var address string
	require.NoError(t, db.QueryRow(`SELECT impact_score, address FROM events WHERE event_id = ?`, first.EventID).
		Scan(&impact, &address))
	assert.Equal(t, 0.82, impact)
	assert.Equal(t, "1 Main St, Palo Alto, CA", address)
}

func TestAppend_AbsentFieldsStoredAsNull(t *testing.T) {
	w, path := openStore(t)

	event := fullEvent()
	event.Magnitude = nil
	event.Address = nil
	event.PopulationDensity = nil
	require.NoError(t, w.Append(context.Background(), []domain.DisasterEvent{event}))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var magnitude, density sql.NullFloat64
	var address sql.NullString
	require.NoError(t, db.QueryRow(`SELECT magnitude, address, population_density FROM events WHERE event_id = ?`, event.EventID).
		Scan(&magnitude, &address, &density))
	assert.False(t, magnitude.Valid)
	assert.False(t, address.Valid)
	assert.False(t, density.Valid)
}

func TestAppend_EmptyBatchIsNoOp(t *testing.T) {
	w, path := openStore(t)
	require.NoError(t, w.Append(context.Background(), nil))
	assert.Equal(t, 0, countEvents(t, path))
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.db")
	w, err := store.Open(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
