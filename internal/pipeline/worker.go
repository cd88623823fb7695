// Package pipeline runs the consume-enrich-score-store loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the queue.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Processor decodes a queue message and runs enrichment and scoring.
type Processor interface {
	Process(ctx context.Context, raw domain.RawEvent) (domain.DisasterEvent, error)
}

// StoreAppender appends fully processed events to the analytical store.
type StoreAppender interface {
	Append(ctx context.Context, events []domain.DisasterEvent) error
}

// Worker orchestrates the enrichment loop: pull a batch from the queue,
// process each message independently on a bounded pool, append the results to
// the analytical store, then commit offsets. Messages in a batch never block
// each other; a hung enrichment call delays only its own message.
type Worker struct {
	extractor BatchExtractor
	processor Processor
	store     StoreAppender
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
	workers   int
}

// New creates a Worker with the given stages and observability.
func New(e BatchExtractor, p Processor, s StoreAppender, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		extractor: e,
		processor: p,
		store:     s,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		workers:   workers,
	}
}

// CheckReadiness returns nil if the worker has stored at least one event,
// or an error describing why the service is not yet ready.
func (w *Worker) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("worker has not stored any events yet")
	}
	return nil
}

// Run executes the enrichment loop until the context is cancelled. Shutdown
// stops pulling new batches promptly; the in-flight batch finishes (or times
// out per-call) before Run returns, so no message is lost unacknowledged.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("enrichment worker started", "batch_size", w.batchSize, "workers", w.workers)
	w.metrics.WorkerRunning.Set(1)
	defer w.metrics.WorkerRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("enrichment worker stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !w.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one consume-process-store cycle. Returns false if the
// worker should stop.
func (w *Worker) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := w.extractor.ExtractBatch(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("extract batch failed", "error", err)
		return w.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	w.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	w.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	stored, ok := w.processAndStore(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if stored > 0 {
		w.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		w.ready.Store(true)
	}
	return true
}

// processAndStore processes each message of the batch concurrently, appends
// the successes to the store, and commits offsets. A message that fails to
// decode is dropped and committed so it is not redelivered forever; only a
// store write failure (transport-fatal) triggers backoff without committing.
// Returns the number of stored events and false if the worker should stop.
func (w *Worker) processAndStore(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	type outcome struct {
		event domain.DisasterEvent
		err   error
	}
	outcomes := make([]outcome, len(rawBatch))

	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup
	for i := range rawBatch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			event, err := w.processor.Process(ctx, rawBatch[i])
			outcomes[i] = outcome{event: event, err: err}
		}(i)
	}
	wg.Wait()

	events := make([]domain.DisasterEvent, 0, len(rawBatch))
	processedRaws := make([]domain.RawEvent, 0, len(rawBatch))
	for i, out := range outcomes {
		raw := rawBatch[i]
		if out.err != nil {
			w.logger.Warn("dropping undecodable message",
				"error", out.err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			w.metrics.DecodeErrors.Inc()
			w.commitOffset(ctx, raw)
			continue
		}
		events = append(events, out.event)
		processedRaws = append(processedRaws, raw)
	}

	if len(events) == 0 {
		return 0, true
	}

	if err := w.store.Append(ctx, events); err != nil {
		w.logger.Error("store append failed", "error", err, "batch_size", len(events))
		return 0, w.backoffOrStop(ctx, backoff, maxBackoff)
	}

	w.metrics.EventsStored.Add(float64(len(events)))

	for _, raw := range processedRaws {
		w.commitOffset(ctx, raw)
	}

	return len(events), true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the worker should stop.
func (w *Worker) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (w *Worker) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		w.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
