// Package demographics provides a proximity lookup over a local SQLite
// demographics dataset.
package demographics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/observability"
	_ "github.com/mattn/go-sqlite3"
)

// toleranceDegrees is the half-width of the match window in both latitude and
// longitude. Coordinates farther than this from every dataset row produce no
// match, which surfaces as an absent population density, never a zero.
const toleranceDegrees = 0.1

// Lookup implements domain.Demographics over a SQLite dataset.
type Lookup struct {
	db      *sql.DB
	timeout time.Duration
	metrics *observability.Metrics
}

// Open opens the demographics dataset. The dataset is provisioned externally;
// this adapter only reads it.
func Open(path string, timeout time.Duration, metrics *observability.Metrics) (*Lookup, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening demographics dataset: %w", err)
	}
	return &Lookup{db: db, timeout: timeout, metrics: metrics}, nil
}

// Close closes the dataset.
func (l *Lookup) Close() error {
	return l.db.Close()
}

// Nearest returns the record closest to (lat, lon) within the tolerance
// window, ranked by Manhattan distance of the coordinate deltas, or nil when
// nothing is close enough. When several rows tie on distance the engine's
// result order decides; that order is not guaranteed stable, so equal-distance
// matches are non-deterministic.
func (l *Lookup) Nearest(ctx context.Context, lat, lon float64) (*domain.DemographicsRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	row := l.db.QueryRowContext(queryCtx, `
		SELECT population_density, hospitals_count, schools_count
		FROM demographics
		WHERE ABS(latitude - ?) < ? AND ABS(longitude - ?) < ?
		ORDER BY ABS(latitude - ?) + ABS(longitude - ?)
		LIMIT 1`,
		lat, toleranceDegrees, lon, toleranceDegrees, lat, lon,
	)

	var density sql.NullFloat64
	var record domain.DemographicsRecord
	if err := row.Scan(&density, &record.HospitalsCount, &record.SchoolsCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.metrics.DemographicsLookups.WithLabelValues("miss").Inc()
			return nil, nil
		}
		l.metrics.DemographicsLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("demographics lookup: %w", err)
	}
	if !density.Valid {
		// A row without a density value carries nothing the pipeline consumes.
		l.metrics.DemographicsLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}

	l.metrics.DemographicsLookups.WithLabelValues("match").Inc()
	record.PopulationDensity = density.Float64
	return &record, nil
}
