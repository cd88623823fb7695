// Command ingest runs the ingestion dispatcher: it pulls hazard events from
// the configured providers on an interval, normalizes them, and publishes
// each one to the events topic. Pass -once to run a single cycle and exit,
// which is the mode an external scheduler invokes.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hazardwatch/disaster-etl/internal/adapter/eonet"
	httpadapter "github.com/hazardwatch/disaster-etl/internal/adapter/http"
	kafkaadapter "github.com/hazardwatch/disaster-etl/internal/adapter/kafka"
	"github.com/hazardwatch/disaster-etl/internal/adapter/usgs"
	"github.com/hazardwatch/disaster-etl/internal/config"
	"github.com/hazardwatch/disaster-etl/internal/ingest"
	"github.com/hazardwatch/disaster-etl/internal/observability"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion cycle and exit")
	flag.Parse()

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	providers := []ingest.Provider{
		usgs.NewClient(cfg.USGSBaseURL, cfg.ProviderTimeout, logger),
		eonet.NewClient(cfg.EONETBaseURL, cfg.ProviderTimeout, logger),
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	dispatcher := ingest.New(providers, writer, logger, metrics, cfg.ProviderTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		count, err := dispatcher.RunCycle(ctx)
		if closeErr := writer.Close(); closeErr != nil {
			logger.Error("kafka writer close error", "error", closeErr)
		}
		if err != nil {
			logger.Error("ingestion cycle failed", "error", err)
			os.Exit(1)
		}
		logger.Info("ingestion cycle finished", "published", count)
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, dispatcher, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// A failed cycle is logged and retried on the next tick; retry policy
	// beyond that belongs to the scheduler and queue infrastructure.
	go func() {
		if _, err := dispatcher.RunCycle(ctx); err != nil {
			logger.Error("ingestion cycle failed", "error", err)
		}
		ticker := time.NewTicker(cfg.IngestInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := dispatcher.RunCycle(ctx); err != nil {
					logger.Error("ingestion cycle failed", "error", err)
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
