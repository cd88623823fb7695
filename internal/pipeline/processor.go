package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazardwatch/disaster-etl/internal/domain"
)

// EventProcessor implements Processor using the domain enrichment and scoring
// functions. Collaborators may be nil to disable their stage: a nil geocoder
// or demographics lookup leaves the corresponding field absent, a nil scorer
// applies the default impact score uniformly. Per-call timeouts live inside
// each collaborator, so a hung call delays only the message holding it.
type EventProcessor struct {
	geocoder     domain.Geocoder
	demographics domain.Demographics
	scorer       domain.Scorer
	logger       *slog.Logger
}

// NewProcessor creates an EventProcessor.
func NewProcessor(geocoder domain.Geocoder, demographics domain.Demographics, scorer domain.Scorer, logger *slog.Logger) *EventProcessor {
	return &EventProcessor{
		geocoder:     geocoder,
		demographics: demographics,
		scorer:       scorer,
		logger:       logger,
	}
}

// Process decodes one queue message and runs it through enrichment and
// scoring. Only a decode failure is an error, and the caller drops that
// message; every downstream failure degrades to an absent or default field
// and the event always moves forward.
func (p *EventProcessor) Process(ctx context.Context, raw domain.RawEvent) (domain.DisasterEvent, error) {
	event, err := domain.DecodeEvent(raw.Value)
	if err != nil {
		return domain.DisasterEvent{}, fmt.Errorf("process message: %w", err)
	}

	event = domain.Enrich(ctx, event, p.geocoder, p.demographics, p.logger)
	event = domain.ApplyScore(ctx, event, p.scorer, p.logger)

	return event, nil
}
