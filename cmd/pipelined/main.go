// Command pipelined runs the weather/energy warehouse service. It owns the
// Postgres warehouse schema, fetches NOAA and EIA source data on demand, and
// exposes refresh triggers, staleness reporting, and Prometheus metrics over
// HTTP. Refreshes are trigger-and-wait: an external scheduler (cron, Airflow,
// anything that can POST) drives the cadence.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-energy-pipeline/internal/adapter/eia"
	httpadapter "github.com/couchcryptid/weather-energy-pipeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-energy-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-energy-pipeline/internal/adapter/noaa"
	"github.com/couchcryptid/weather-energy-pipeline/internal/adapter/postgres"
	"github.com/couchcryptid/weather-energy-pipeline/internal/config"
	"github.com/couchcryptid/weather-energy-pipeline/internal/observability"
	"github.com/couchcryptid/weather-energy-pipeline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open warehouse", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	weather := noaa.NewClient(cfg.NOAAToken, cfg.NOAABaseURL, cfg.NOAATimeout, cfg.NOAAPageSize, metrics, logger)
	demand := eia.NewClient(cfg.EIAAPIKey, cfg.EIABaseURL, cfg.EIATimeout, cfg.EIAPageSize, metrics, logger)

	// Correlation sink (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var sink pipeline.CorrelationSink
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
		metrics.SinkEnabled.Set(1)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka sink disabled")
	}

	refresher := pipeline.New(weather, demand, store, sink, logger, metrics,
		cfg.StartDate, pipeline.DefaultStaleAfter)

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
