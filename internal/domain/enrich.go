package domain

import (
	"context"
	"log/slog"
	"time"
)

// Geocoder resolves coordinates to a human-readable address.
type Geocoder interface {
	// ReverseGeocode returns the top-ranked formatted address for the
	// coordinate, or an empty string when the provider has no result.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// DemographicsRecord is one row of the demographics dataset. Only
// PopulationDensity flows into the canonical event; the remaining counts are
// carried for callers that want them.
type DemographicsRecord struct {
	PopulationDensity float64
	HospitalsCount    int
	SchoolsCount      int
}

// Demographics finds the demographics record nearest to a coordinate.
type Demographics interface {
	// Nearest returns the closest record within the tolerance window, or nil
	// when no record is close enough.
	Nearest(ctx context.Context, lat, lon float64) (*DemographicsRecord, error)
}

// TimeFormat is the canonical timestamp rendering written to the analytical
// store.
const TimeFormat = "2006-01-02 15:04:05 UTC"

// Enrich augments a decoded event with a reverse-geocoded address and
// demographics context, then canonicalizes its timestamps. Every failure in
// here is local: the affected field stays absent and the event continues
// forward. Nil collaborators skip their stage entirely.
func Enrich(ctx context.Context, event DisasterEvent, geocoder Geocoder, demographics Demographics, logger *slog.Logger) DisasterEvent {
	if geocoder != nil {
		address, err := geocoder.ReverseGeocode(ctx, event.Latitude, event.Longitude)
		switch {
		case err != nil:
			logger.Warn("reverse geocoding failed",
				"event_id", event.EventID,
				"lat", event.Latitude,
				"lon", event.Longitude,
				"error", err,
			)
		case address != "":
			event.Address = &address
		}
	}

	if demographics != nil {
		record, err := demographics.Nearest(ctx, event.Latitude, event.Longitude)
		if err != nil {
			logger.Warn("demographics lookup failed",
				"event_id", event.EventID,
				"lat", event.Latitude,
				"lon", event.Longitude,
				"error", err,
			)
		} else if record != nil {
			density := record.PopulationDensity
			event.PopulationDensity = &density
		}
	}

	event.EventTime = canonicalTimestamp(event.EventTime)
	event.DetectedTime = canonicalTimestamp(event.DetectedTime)
	return event
}

// canonicalTimestamp re-renders a provider timestamp in TimeFormat.
// Already-canonical input passes through unchanged so replays are stable.
// Unparseable input maps to the current UTC instant, not an error.
func canonicalTimestamp(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(TimeFormat)
	}
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t.UTC().Format(TimeFormat)
	}
	return clock.Now().UTC().Format(TimeFormat)
}
