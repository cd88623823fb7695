package domain

import (
	"context"
	"log/slog"
)

// Scorer produces an impact prediction for a fixed-order feature vector.
type Scorer interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}

// DefaultImpactScore applies whenever scoring is disabled or fails.
const DefaultImpactScore = 0.5

// FeatureVector builds the fixed 8-element model input:
//
//	[magnitude, population_density,
//	 is_critical, is_high, is_medium,
//	 is_earthquake, is_wildfire, is_volcano]
//
// Indicators are 0/1 and absent numerics contribute 0. The scoring model was
// trained against exactly this layout; the order is part of the contract.
func FeatureVector(event DisasterEvent) []float64 {
	var magnitude, density float64
	if event.Magnitude != nil {
		magnitude = *event.Magnitude
	}
	if event.PopulationDensity != nil {
		density = *event.PopulationDensity
	}
	return []float64{
		magnitude,
		density,
		indicator(event.Severity == SeverityCritical),
		indicator(event.Severity == SeverityHigh),
		indicator(event.Severity == SeverityMedium),
		indicator(event.EventType == "earthquake"),
		indicator(event.EventType == "wildfire"),
		indicator(event.EventType == "volcano"),
	}
}

// ApplyScore attaches an impact score to the event. A nil scorer or any
// prediction failure falls back to DefaultImpactScore, and out-of-range
// predictions are clamped to [0,1]. Scoring never blocks the pipeline.
func ApplyScore(ctx context.Context, event DisasterEvent, scorer Scorer, logger *slog.Logger) DisasterEvent {
	event.ImpactScore = DefaultImpactScore
	if scorer == nil {
		return event
	}

	prediction, err := scorer.Predict(ctx, FeatureVector(event))
	if err != nil {
		logger.Warn("impact scoring failed", "event_id", event.EventID, "error", err)
		return event
	}
	event.ImpactScore = clamp01(prediction)
	return event
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
