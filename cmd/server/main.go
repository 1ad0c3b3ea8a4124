// Package main provides the entry point for the paper recommendation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusresearch/paper-recommendation-service/internal/config"
	"github.com/nexusresearch/paper-recommendation-service/internal/database"
	"github.com/nexusresearch/paper-recommendation-service/internal/llm"
	"github.com/nexusresearch/paper-recommendation-service/internal/observability"
	"github.com/nexusresearch/paper-recommendation-service/internal/papersources/semanticscholar"
	"github.com/nexusresearch/paper-recommendation-service/internal/pipeline"
	"github.com/nexusresearch/paper-recommendation-service/internal/repository"
	httpserver "github.com/nexusresearch/paper-recommendation-service/internal/server/http"
)

// metricsNamespace prefixes all Prometheus metric names.
const metricsNamespace = "paper_recommendation"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-recommendation-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create the library repository.
	paperRepo := repository.NewPgPaperRepository(db)

	// Create the external search client. One client serves all pipeline
	// modes, so its gate spaces every outbound Semantic Scholar call.
	searcher := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:     cfg.SemanticScholar.BaseURL,
		APIKey:      cfg.SemanticScholar.APIKey,
		Timeout:     cfg.SemanticScholar.Timeout,
		MinInterval: cfg.SemanticScholar.MinInterval,
		MaxResults:  cfg.SemanticScholar.MaxResults,
	}, nil)
	logger.Info().
		Str("base_url", cfg.SemanticScholar.BaseURL).
		Dur("min_interval", cfg.SemanticScholar.MinInterval).
		Bool("authenticated", cfg.SemanticScholar.APIKey != "").
		Msg("semantic scholar client configured")

	// Create the generative judge client.
	judge := llm.NewGroqClient(llm.GroqConfig{
		APIKey:  cfg.LLM.Groq.APIKey,
		Model:   cfg.LLM.Groq.Model,
		BaseURL: cfg.LLM.Groq.BaseURL,
	}, cfg.LLM.Temperature, cfg.LLM.Timeout, cfg.LLM.MaxRetries)
	logger.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Groq.Model).
		Msg("judge client configured")

	// Register Prometheus metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(metricsNamespace)
	}

	// Assemble the ranking pipeline.
	pipe := pipeline.New(paperRepo, searcher, judge, pipeline.Config{
		RecommendTopK:  cfg.Pipeline.RecommendTopK,
		SimilarityTopK: cfg.Pipeline.SimilarityTopK,
		JudgeTimeout:   cfg.Pipeline.JudgeTimeout,
	}, metrics, logger)

	// Create the HTTP API server.
	httpCfg := httpserver.Config{
		Address:      cfg.Server.HTTPAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}
	httpSrv := httpserver.NewServer(httpCfg, pipe, paperRepo, searcher, db, metrics, logger)

	// Set up the Prometheus handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-recommendation-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-recommendation-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-recommendation-service shutdown complete")
	return nil
}
