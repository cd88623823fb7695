// Package domain models canonical hazard events assembled from multiple
// public provider feeds.
//
// # Data Sources
//
// Events are pulled from two upstream providers on a timer:
//
//	USGS:  earthquake summary GeoJSON feed (all_hour.geojson). Each feature
//	       carries a native id, magnitude, epoch-millisecond event time, and
//	       point geometry in [longitude, latitude, depth] order.
//	EONET: NASA Earth Observatory Natural Event Tracker v3 events API,
//	       filtered to severe storms, volcanoes, and wildfires. Each event
//	       carries one or more categories and a list of dated geometries
//	       with [longitude, latitude] coordinates.
//
// Both providers report coordinates in GeoJSON [lon, lat] order; normalization
// swaps them into the canonical (latitude, longitude) fields. Records without
// point geometry are dropped during normalization, not treated as errors.
//
// # Event IDs
//
// IDs are "<source prefix>_<provider native id>" (usgs_abc, nasa_EONET_1234),
// so re-ingesting the same provider record produces the same id and the
// analytical store can dedupe replays on it. When a provider omits the native
// id a random UUID is substituted; such records cannot be deduped across
// ingestion runs.
//
// # Severity
//
// Severity is assigned once at normalization time and never recomputed.
// Earthquakes are classified from magnitude with lower-bound-inclusive tiers
// (≥8.0 critical, ≥6.0 high, ≥4.0 medium, otherwise low; unknown when the
// magnitude is absent). Other provider events are classified by a substring
// heuristic over the category text: "severe" and "volcano" rank high,
// "wildfire" medium, everything else low. The heuristic is deliberately
// uncalibrated; treat it as a coarse triage label, not a model output.
//
// # Enrichment
//
// Enrichment is best-effort. A failed geocode leaves Address nil, a failed
// demographics lookup leaves PopulationDensity nil, and a failed scoring call
// leaves ImpactScore at the 0.5 default. Absent and zero are different facts:
// nil means the lookup did not produce a value, 0 means it produced zero.
package domain
