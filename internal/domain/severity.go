package domain

import "strings"

// ClassifyEarthquake maps Richter magnitude to a severity tier. Tiers are
// inclusive at their lower bound: 4.0 → medium, 6.0 → high, 8.0 → critical.
// A nil magnitude classifies as unknown.
func ClassifyEarthquake(magnitude *float64) string {
	if magnitude == nil {
		return SeverityUnknown
	}
	switch m := *magnitude; {
	case m >= 8.0:
		return SeverityCritical
	case m >= 6.0:
		return SeverityHigh
	case m >= 4.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ClassifyCategory assigns severity from a provider-reported category string
// by substring match on the lowercased text. This is a triage heuristic, not
// a calibrated model; refine it only with real requirements behind the change.
func ClassifyCategory(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "severe"), strings.Contains(c, "volcano"):
		return SeverityHigh
	case strings.Contains(c, "wildfire"):
		return SeverityMedium
	default:
		return SeverityLow
	}
}
