package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Severity levels assigned at normalization time.
const (
	SeverityUnknown  = "unknown"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// DisasterEvent is the canonical shape every downstream stage operates on.
// The normalizer creates it, enrichment and scoring add fields (fields are
// only ever added, never removed), and it becomes immutable once appended to
// the analytical store. The JSON encoding of this struct is the queue wire
// contract: one event per message, UTF-8 JSON.
type DisasterEvent struct {
	EventID     string   `json:"event_id"`
	EventType   string   `json:"event_type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Magnitude   *float64 `json:"magnitude,omitempty"` // earthquake-only

	Severity     string `json:"severity"`
	EventTime    string `json:"event_time"`
	DetectedTime string `json:"detected_time"`
	Source       string `json:"source"`

	// RawData retains the original provider record serialized as text for
	// audit and debugging. Never interpreted downstream.
	RawData string `json:"raw_data"`

	// Enrichment additions. Nil means the lookup did not produce a value,
	// which is a different fact than zero.
	Address           *string  `json:"address,omitempty"`
	PopulationDensity *float64 `json:"population_density,omitempty"`

	// Scoring addition. Always in [0,1]; exactly 0.5 when scoring is
	// unavailable or disabled.
	ImpactScore float64 `json:"impact_score"`
}

// RawEvent is an unprocessed message pulled from the events topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// DecodeEvent parses the queue wire form of a DisasterEvent.
func DecodeEvent(data []byte) (DisasterEvent, error) {
	var event DisasterEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return DisasterEvent{}, fmt.Errorf("decode disaster event: %w", err)
	}
	return event, nil
}

// EncodeEvent serializes a DisasterEvent into its queue wire form.
func EncodeEvent(event DisasterEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode disaster event: %w", err)
	}
	return data, nil
}
