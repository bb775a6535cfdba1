package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/sentinel-querylog/example/sql/internal/config"
	"github.com/kroma-labs/sentinel-querylog/example/sql/internal/database"
	"github.com/kroma-labs/sentinel-querylog/example/sql/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.TraceLevel).
		With().Timestamp().Logger()

	logging, err := config.LoadLogging()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid logging configuration")
	}

	// 1. Setup OpenTelemetry (Tracing + Logs + Metrics)
	providers, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup OTel")
	}
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shut down OTel")
		}
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting Prometheus metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Open Database Connection with statement logging
	db, err := database.New(ctx, logger, providers.LoggerProvider, logging)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	tracer := otel.Tracer("example-app")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := db.CreateTable(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to create table")
	}

	ticker := time.NewTicker(time.Duration(config.OperationInterval) * time.Second)
	defer ticker.Stop()

	logger.Info().
		Stringer("statements", logging.Level).
		Stringer("slow_statements", logging.SlowLevel).
		Dur("slow_threshold", logging.SlowThreshold).
		Msg("SQL example app started, press Ctrl+C to stop")

	for {
		select {
		case <-ticker.C:
			ctx, span := tracer.Start(ctx, "db-operations")

			if err := db.InsertUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to insert users")
			}
			if err := db.QueryUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to query users")
			}
			if err := db.RenameInTransaction(ctx, "Bob", "Robert"); err != nil {
				logger.Warn().Err(err).Msg("rename transaction rolled back")
			}
			if err := db.SlowQuery(ctx, logging.SlowThreshold+100*time.Millisecond); err != nil {
				logger.Error().Err(err).Msg("slow query failed")
			}

			span.End()

		case <-sigChan:
			logger.Info().Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}
