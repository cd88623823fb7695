// Command enrich runs the enrichment worker: it consumes canonical events
// from the events topic, enriches them with address and demographics context,
// attaches an impact score, and appends the results to the analytical store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hazardwatch/disaster-etl/internal/adapter/demographics"
	"github.com/hazardwatch/disaster-etl/internal/adapter/geocode"
	httpadapter "github.com/hazardwatch/disaster-etl/internal/adapter/http"
	kafkaadapter "github.com/hazardwatch/disaster-etl/internal/adapter/kafka"
	"github.com/hazardwatch/disaster-etl/internal/adapter/scoring"
	"github.com/hazardwatch/disaster-etl/internal/adapter/store"
	"github.com/hazardwatch/disaster-etl/internal/config"
	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/observability"
	"github.com/hazardwatch/disaster-etl/internal/pipeline"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Each enrichment collaborator is optional; a nil collaborator disables
	// its stage and the documented default/absence applies.
	var geocoder domain.Geocoder
	if cfg.GeocodingEnabled {
		client := geocode.NewClient(cfg.GeocodingAPIKey, cfg.GeocodingTimeout, metrics, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.GeocodingCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "cache_size", cfg.GeocodingCacheSize, "timeout", cfg.GeocodingTimeout)
	} else {
		logger.Info("geocoding disabled")
	}

	var demoLookup domain.Demographics
	if cfg.DemographicsPath != "" {
		lookup, err := demographics.Open(cfg.DemographicsPath, cfg.DemographicsTimeout, metrics)
		if err != nil {
			logger.Error("failed to open demographics dataset", "path", cfg.DemographicsPath, "error", err)
			os.Exit(1)
		}
		defer lookup.Close()
		demoLookup = lookup
		logger.Info("demographics lookup enabled", "path", cfg.DemographicsPath)
	} else {
		logger.Info("demographics lookup disabled")
	}

	var scorer domain.Scorer
	if cfg.ScoringEndpoint != "" {
		scorer = scoring.NewClient(cfg.ScoringEndpoint, cfg.ScoringTimeout, metrics, logger)
		logger.Info("impact scoring enabled", "endpoint", cfg.ScoringEndpoint)
	} else {
		logger.Info("impact scoring disabled, default score applies")
	}

	storeWriter, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		logger.Error("failed to open analytical store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	processor := pipeline.NewProcessor(geocoder, demoLookup, scorer, logger)
	worker := pipeline.New(reader, processor, storeWriter, logger, metrics, cfg.BatchSize, cfg.Workers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, worker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := worker.Run(ctx); err != nil {
			logger.Error("worker error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := storeWriter.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
