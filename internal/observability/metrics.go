package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for both
// pipeline services. The ingestion dispatcher and the enrichment worker each
// use their own subset; registering the full set in both keeps the dashboards
// uniform.
type Metrics struct {
	// Ingestion dispatcher.
	ProviderEvents      *prometheus.CounterVec // labels: provider
	ProviderErrors      *prometheus.CounterVec // labels: provider
	EventsPublished     prometheus.Counter
	PublishErrors       prometheus.Counter
	IngestCycleDuration prometheus.Histogram

	// Enrichment worker.
	MessagesConsumed        prometheus.Counter
	EventsStored            prometheus.Counter
	DecodeErrors            prometheus.Counter
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	WorkerRunning           prometheus.Gauge

	// Enrichment collaborators.
	GeocodeRequests     *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache        *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration  prometheus.Histogram
	GeocodeEnabled      prometheus.Gauge
	DemographicsLookups *prometheus.CounterVec // labels: outcome={match,miss,error}
	ScoringRequests     *prometheus.CounterVec // labels: outcome={success,error}
	ScoringDuration     prometheus.Histogram
}

const namespace = "disaster_etl"

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderEvents,
		m.ProviderErrors,
		m.EventsPublished,
		m.PublishErrors,
		m.IngestCycleDuration,
		m.MessagesConsumed,
		m.EventsStored,
		m.DecodeErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.WorkerRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.DemographicsLookups,
		m.ScoringRequests,
		m.ScoringDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_events_total",
			Help:      "Normalized events fetched, by provider.",
		}, []string{"provider"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed provider fetches, by provider.",
		}, []string{"provider"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to the events topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Per-event publish failures.",
		}),
		IngestCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Messages read from the events topic.",
		}),
		EventsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_stored_total",
			Help:      "Fully processed events appended to the analytical store.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Queue messages dropped because the payload did not decode.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Messages per batch pulled from the events topic.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete consume-enrich-score-store cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_running",
			Help:      "1 when the enrichment worker is active, 0 when shut down.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse-geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
		DemographicsLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demographics_lookups_total",
			Help:      "Demographics proximity lookups by outcome.",
		}, []string{"outcome"}),
		ScoringRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Impact-scoring service requests by outcome.",
		}, []string{"outcome"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Impact-scoring request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
