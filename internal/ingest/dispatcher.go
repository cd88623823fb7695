// Package ingest fans out to the configured hazard providers and publishes
// normalized events onto the events topic.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/observability"
)

// Provider fetches one upstream feed and returns normalized canonical events.
// Provider-specific payload shapes never leave the adapter implementing this.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.DisasterEvent, error)
}

// Publisher emits one canonical event onto the events topic.
type Publisher interface {
	Publish(ctx context.Context, event domain.DisasterEvent) error
}

// Dispatcher pulls from every configured provider concurrently and publishes
// each normalized event independently.
type Dispatcher struct {
	providers    []Provider
	publisher    Publisher
	logger       *slog.Logger
	metrics      *observability.Metrics
	fetchTimeout time.Duration
	completed    atomic.Bool
}

// New creates a Dispatcher. fetchTimeout bounds each provider call.
func New(providers []Provider, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, fetchTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		providers:    providers,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
		fetchTimeout: fetchTimeout,
	}
}

// CheckReadiness returns nil once at least one ingestion cycle has completed.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.completed.Load() {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// RunCycle fetches from all providers concurrently, publishes the normalized
// events, and returns the number published. A provider failure contributes
// zero events and never aborts the cycle; a publish failure for one event is
// logged and skipped. The cycle itself only fails when the queue transport is
// down outright, i.e. every publish attempt of a non-empty cycle failed. The
// external scheduler owns retrying a failed cycle.
func (d *Dispatcher) RunCycle(ctx context.Context) (int, error) {
	start := time.Now()

	batches := make([][]domain.DisasterEvent, len(d.providers))
	var wg sync.WaitGroup
	for i, provider := range d.providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
			defer cancel()

			events, err := provider.Fetch(fetchCtx)
			if err != nil {
				d.logger.Warn("provider fetch failed", "provider", provider.Name(), "error", err)
				d.metrics.ProviderErrors.WithLabelValues(provider.Name()).Inc()
				return
			}
			d.metrics.ProviderEvents.WithLabelValues(provider.Name()).Add(float64(len(events)))
			batches[i] = events
		}(i, provider)
	}
	wg.Wait()

	var published, failed int
	var lastErr error
	for _, batch := range batches {
		for _, event := range batch {
			if err := d.publisher.Publish(ctx, event); err != nil {
				d.logger.Warn("publish failed, skipping event",
					"event_id", event.EventID,
					"source", event.Source,
					"error", err,
				)
				d.metrics.PublishErrors.Inc()
				failed++
				lastErr = err
				continue
			}
			d.metrics.EventsPublished.Inc()
			published++
		}
	}

	if published == 0 && failed > 0 {
		return 0, fmt.Errorf("queue transport unavailable: all %d publishes failed: %w", failed, lastErr)
	}

	d.metrics.IngestCycleDuration.Observe(time.Since(start).Seconds())
	d.completed.Store(true)
	d.logger.Info("ingestion cycle complete",
		"published", published,
		"failed", failed,
		"duration", time.Since(start),
	)
	return published, nil
}
