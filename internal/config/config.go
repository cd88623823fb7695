package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// It is loaded once at process start and treated as immutable afterwards.
// Both binaries share the struct; each reads the fields it needs.
type Config struct {
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	// Ingestion dispatcher.
	USGSBaseURL     string
	EONETBaseURL    string
	ProviderTimeout time.Duration
	IngestInterval  time.Duration

	// Enrichment worker.
	BatchSize          int
	BatchFlushInterval time.Duration
	Workers            int

	// Reverse-geocoding configuration.
	GeocodingAPIKey    string
	GeocodingEnabled   bool
	GeocodingTimeout   time.Duration
	GeocodingCacheSize int

	// Demographics dataset (SQLite). Empty path disables the lookup.
	DemographicsPath    string
	DemographicsTimeout time.Duration

	// Scoring service. Empty endpoint disables scoring and the default
	// impact score applies uniformly.
	ScoringEndpoint string
	ScoringTimeout  time.Duration

	// Analytical store (SQLite, append-only).
	StorePath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	ingestInterval, err := parseDuration("INGEST_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	geocodingTimeout, err := parseDuration("GEOCODING_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	demographicsTimeout, err := parseDuration("DEMOGRAPHICS_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	scoringTimeout, err := parseDuration("SCORING_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseIntInRange("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	workers, err := parseIntInRange("WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntInRange("GEOCODING_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("GEOCODING_API_KEY")
	geocodingEnabled := apiKey != ""
	if v := os.Getenv("GEOCODING_ENABLED"); v != "" {
		geocodingEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:     splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic: envOrDefault("KAFKA_EVENTS_TOPIC", "disaster-events"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "disaster-etl"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		USGSBaseURL:     envOrDefault("USGS_API_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0"),
		EONETBaseURL:    envOrDefault("NASA_EONET_API_BASE_URL", "https://eonet.gsfc.nasa.gov/api/v3"),
		ProviderTimeout: providerTimeout,
		IngestInterval:  ingestInterval,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		Workers:            workers,

		GeocodingAPIKey:    apiKey,
		GeocodingEnabled:   geocodingEnabled,
		GeocodingTimeout:   geocodingTimeout,
		GeocodingCacheSize: cacheSize,

		DemographicsPath:    os.Getenv("DEMOGRAPHICS_DB_PATH"),
		DemographicsTimeout: demographicsTimeout,

		ScoringEndpoint: os.Getenv("SCORING_ENDPOINT"),
		ScoringTimeout:  scoringTimeout,

		StorePath: envOrDefault("STORE_DB_PATH", "data/events.db"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required")
	}
	if cfg.GeocodingEnabled && cfg.GeocodingAPIKey == "" {
		return nil, errors.New("GEOCODING_ENABLED is true but GEOCODING_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, min, max)
	}
	return n, nil
}
