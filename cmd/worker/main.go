// Package main provides the entrypoint for the tripmap generation worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/config"
	"github.com/tripmap/tripmap/internal/database"
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/planner"
	"github.com/tripmap/tripmap/internal/provider/resilience"
	"github.com/tripmap/tripmap/internal/telemetry"
	"github.com/tripmap/tripmap/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tripmap-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting tripmap worker")

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.PubSub.Enabled() {
		log.Fatal().Msg("pubsub.project_id is required for the worker")
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Generated itineraries are saved to PostgreSQL
	if !cfg.Database.Enabled {
		log.Fatal().Msg("database must be enabled for the worker")
	}
	pool, err := database.Connect(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	itineraries := itinerary.NewService(itinerary.ServiceConfig{
		Repository: itinerary.NewPostgresRepository(pool),
		Logger:     log,
	})

	// Planner with retries, circuit breaker and the shared Valkey cache
	var cache planner.Cache
	if cfg.Valkey.Addr != "" {
		vc, err := planner.NewValkeyCache(cfg.Valkey.Addr, "tripmap:")
		if err != nil {
			log.Warn().Err(err).Msg("valkey unavailable - itinerary cache disabled")
		} else {
			defer vc.Close()
			cache = vc
		}
	}

	plannerService := planner.NewService(planner.ServiceConfig{
		Completer: planner.NewClient(planner.ClientConfig{
			APIKey:      cfg.Planner.APIKey,
			BaseURL:     cfg.Planner.BaseURL,
			Model:       cfg.Planner.Model,
			Temperature: cfg.Planner.Temperature,
			HTTPClient: resilience.NewClient(resilience.ClientConfig{
				Name:       "dashscope",
				Timeout:    cfg.Planner.Timeout,
				MaxRetries: cfg.Planner.MaxRetries,
				Logger:     log,
			}),
			Logger: log,
		}),
		Model:    cfg.Planner.Model,
		Cache:    cache,
		CacheTTL: cfg.Planner.CacheTTL,
		Metrics:  providerMetrics,
		Logger:   log,
	})
	if !plannerService.Configured() {
		log.Fatal().Msg("planner.api_key is required for the worker")
	}

	generateJob := worker.NewGenerateJob(worker.GenerateJobConfig{
		Generator: plannerService,
		Store:     itineraries,
		Timeout:   cfg.Planner.Timeout * 2,
		Logger:    log,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.Subscription,
		GenerateJob:      generateJob,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}()

	// Worker also exposes health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		m := generateJob.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"version":   Version,
			"processed": m.Processed,
			"succeeded": m.Succeeded,
			"retried":   m.Retried,
			"dropped":   m.Dropped,
		})
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Receive blocks until ctx is cancelled
	if err := handler.Start(ctx); err != nil {
		log.Error().Err(err).Msg("pubsub receive stopped")
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
