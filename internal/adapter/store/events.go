// Package store appends fully processed events to the analytical store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazardwatch/disaster-etl/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// Writer appends fully processed events to the analytical events table.
// Writes are append-only and idempotent on event_id, so replaying a queue
// message is a no-op-equivalent write. It implements pipeline.StoreAppender.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the analytical store at the given path.
func Open(path string, logger *slog.Logger) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening analytical store: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating analytical store: %w", err)
	}

	return &Writer{db: db, logger: logger}, nil
}

// Close closes the store.
func (w *Writer) Close() error {
	return w.db.Close()
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id           TEXT PRIMARY KEY,
			event_type         TEXT NOT NULL,
			title              TEXT,
			description        TEXT,
			latitude           REAL NOT NULL,
			longitude          REAL NOT NULL,
			magnitude          REAL,
			severity           TEXT NOT NULL,
			event_time         TEXT NOT NULL,
			detected_time      TEXT NOT NULL,
			source             TEXT NOT NULL,
			raw_data           TEXT,
			address            TEXT,
			population_density REAL,
			impact_score       REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_type ON events (event_type);
		CREATE INDEX IF NOT EXISTS idx_events_event_time ON events (event_time);
	`)
	return err
}

// Append writes a batch of events in one transaction. INSERT OR IGNORE keyed
// on event_id makes duplicate deliveries from the at-least-once queue
// harmless; the first write of an event_id wins and is never updated.
func (w *Writer) Append(ctx context.Context, events []domain.DisasterEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (
			event_id, event_type, title, description,
			latitude, longitude, magnitude, severity,
			event_time, detected_time, source, raw_data,
			address, population_density, impact_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		_, err := stmt.ExecContext(ctx,
			event.EventID,
			event.EventType,
			event.Title,
			event.Description,
			event.Latitude,
			event.Longitude,
			nullableFloat(event.Magnitude),
			event.Severity,
			event.EventTime,
			event.DetectedTime,
			event.Source,
			event.RawData,
			nullableString(event.Address),
			nullableFloat(event.PopulationDensity),
			event.ImpactScore,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", event.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store transaction: %w", err)
	}
	return nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
