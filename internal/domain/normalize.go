package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider raw shapes. All provider-specific field names and taxonomies are
// isolated in this file; nothing downstream branches on the source provider.

// USGSFeature is one feature from the USGS GeoJSON summary feed.
type USGSFeature struct {
	ID         string         `json:"id"`
	Properties USGSProperties `json:"properties"`
	Geometry   PointGeometry  `json:"geometry"`
}

// USGSProperties holds the subset of feature properties the normalizer reads.
type USGSProperties struct {
	Mag   *float64 `json:"mag"`
	Time  int64    `json:"time"` // epoch milliseconds
	Title string   `json:"title"`
}

// PointGeometry is a GeoJSON point. Coordinates are [longitude, latitude]
// with an optional trailing depth.
type PointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// EONETEvent is one event from the NASA EONET v3 events API.
type EONETEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Categories  []EONETCategory `json:"categories"`
	Geometry    []EONETGeometry `json:"geometry"`
}

// EONETCategory names one category an EONET event belongs to.
type EONETCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EONETGeometry is one dated coordinate observation of an EONET event.
type EONETGeometry struct {
	Date        string    `json:"date"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// NormalizeUSGS maps a USGS earthquake feature into the canonical event.
// Features without valid point geometry are rejected (ok=false), contributing
// nothing to the cycle. The raw argument is the original record bytes and is
// retained verbatim in RawData.
func NormalizeUSGS(feature USGSFeature, raw []byte) (DisasterEvent, bool) {
	lat, lon, ok := pointCoordinates(feature.Geometry.Type, feature.Geometry.Coordinates)
	if !ok {
		return DisasterEvent{}, false
	}

	now := clock.Now().UTC()
	eventTime := now
	if feature.Properties.Time > 0 {
		eventTime = time.UnixMilli(feature.Properties.Time).UTC()
	}

	return DisasterEvent{
		EventID:      prefixedID("usgs", feature.ID),
		EventType:    "earthquake",
		Title:        feature.Properties.Title,
		Description:  feature.Properties.Title,
		Latitude:     lat,
		Longitude:    lon,
		Magnitude:    feature.Properties.Mag,
		Severity:     ClassifyEarthquake(feature.Properties.Mag),
		EventTime:    eventTime.Format(time.RFC3339),
		DetectedTime: now.Format(time.RFC3339),
		Source:       "USGS",
		RawData:      string(raw),
	}, true
}

// NormalizeEONET maps a NASA EONET event into the canonical event, reading
// coordinates and event time from the first geometry entry. Only the first
// category drives type and severity; EONET can report several categories per
// event, and multi-category events are deliberately not fanned out.
func NormalizeEONET(event EONETEvent, raw []byte) (DisasterEvent, bool) {
	if len(event.Geometry) == 0 {
		return DisasterEvent{}, false
	}
	geo := event.Geometry[0]
	lat, lon, ok := pointCoordinates("Point", geo.Coordinates)
	if !ok {
		return DisasterEvent{}, false
	}

	category := ""
	if len(event.Categories) > 0 {
		category = event.Categories[0].Title
	}
	eventType := strings.ToLower(category)
	if eventType == "" {
		eventType = "natural-event"
	}

	now := clock.Now().UTC()
	eventTime := now.Format(time.RFC3339)
	if geo.Date != "" {
		if t, err := time.Parse(time.RFC3339, geo.Date); err == nil {
			eventTime = t.UTC().Format(time.RFC3339)
		}
	}

	return DisasterEvent{
		EventID:      prefixedID("nasa", event.ID),
		EventType:    eventType,
		Title:        event.Title,
		Description:  event.Description,
		Latitude:     lat,
		Longitude:    lon,
		Severity:     ClassifyCategory(category),
		EventTime:    eventTime,
		DetectedTime: now.Format(time.RFC3339),
		Source:       "NASA",
		RawData:      string(raw),
	}, true
}

// pointCoordinates validates GeoJSON point geometry and swaps the [lon, lat]
// pair into canonical (lat, lon) order. Records lacking two finite coordinate
// values carry no usable location and are rejected.
func pointCoordinates(geomType string, coords []float64) (lat, lon float64, ok bool) {
	if geomType != "Point" || len(coords) < 2 {
		return 0, 0, false
	}
	lon, lat = coords[0], coords[1]
	if !isFinite(lat) || !isFinite(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// prefixedID builds the stable event id. Re-ingesting the same provider
// record yields the same id, which is what lets the analytical store dedupe
// at-least-once replays. A random UUID substitutes for a missing native id.
func prefixedID(prefix, nativeID string) string {
	if nativeID == "" {
		nativeID = uuid.NewString()
	}
	return prefix + "_" + nativeID
}
