// Package main provides the entrypoint for the tripmap API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/api"
	"github.com/tripmap/tripmap/internal/api/handler"
	"github.com/tripmap/tripmap/internal/api/middleware"
	"github.com/tripmap/tripmap/internal/auth"
	"github.com/tripmap/tripmap/internal/config"
	"github.com/tripmap/tripmap/internal/database"
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/navigation"
	"github.com/tripmap/tripmap/internal/planner"
	"github.com/tripmap/tripmap/internal/provider/resilience"
	"github.com/tripmap/tripmap/internal/session"
	"github.com/tripmap/tripmap/internal/telemetry"
	"github.com/tripmap/tripmap/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tripmap-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting tripmap API")

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize OpenTelemetry
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

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	sessionMetrics, err := telemetry.NewSessionMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session metrics")
	}

	readiness := map[string]handler.Pinger{}

	// Saved itineraries: PostgreSQL when enabled, in-process otherwise
	var itineraryRepo itinerary.Repository
	if cfg.Database.Enabled {
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
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.DBName).
			Msg("database connected")

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("failed to migrate database")
			}
		}
		itineraryRepo = itinerary.NewPostgresRepository(pool)
		readiness["postgres"] = pool.Ping
	} else {
		log.Warn().Msg("database disabled - saved itineraries are kept in memory")
		itineraryRepo = itinerary.NewInMemoryRepository()
	}

	itineraries := itinerary.NewService(itinerary.ServiceConfig{
		Repository: itineraryRepo,
		Logger:     log,
	})

	// Token verification
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret not set - authenticated endpoints will reject every request")
	}
	verifier := auth.NewVerifier(auth.JWTConfig{
		SigningKey: cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})

	// Itinerary generation
	providers := resilience.NewRegistry()
	plannerService, closeCache := newPlanner(cfg, providers, providerMetrics, log)
	defer closeCache()
	if !plannerService.Configured() {
		log.Warn().Msg("planner.api_key not set - itinerary generation disabled")
	}

	// Generation jobs: Pub/Sub when configured, in-process otherwise
	var publisher worker.JobPublisher
	if cfg.PubSub.Enabled() {
		p, err := worker.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job publisher")
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close job publisher")
			}
		}()
		publisher = p
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("publishing generation jobs to pubsub")
	} else {
		job := worker.NewGenerateJob(worker.GenerateJobConfig{
			Generator: plannerService,
			Store:     itineraries,
			Timeout:   cfg.Planner.Timeout,
			Logger:    log,
		})
		publisher = worker.NewInlinePublisher(worker.NewDispatcher(job, log))
	}

	// Viewer sessions
	nav, err := navigation.NewBuilder(cfg.Map.NavigationBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid navigation base url")
	}
	if cfg.Map.APIKey == "" {
		log.Warn().Msg("map.api_key not set - sessions will run without a map")
	}
	sessions := session.NewManager(session.Config{
		MapAPIKey:       cfg.Map.APIKey,
		Navigation:      nav,
		IdleTTL:         cfg.Session.IdleTTL,
		MaxSessions:     cfg.Session.MaxSessions,
		CleanupInterval: cfg.Session.CleanupInterval,
		MapLoadTimeout:  cfg.Map.LoadTimeout,
		Metrics:         sessionMetrics,
		Logger:          log,
	})
	go sessions.Run(ctx)

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		RequireTLS:      cfg.App.RequireTLS,
		Verifier:        verifier,
		Itineraries:     itineraries,
		Planner:         plannerService,
		Publisher:       publisher,
		Sessions:        sessions,
		Providers:       providers,
		ReadinessChecks: readiness,
	})

	// Create HTTP server. Generation can take most of a minute.
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Planner.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	sessions.Close()

	log.Info().Msg("server stopped")
}

// newPlanner wires the model client, its resilient transport and the optional
// Valkey cache. The returned func releases the cache connection.
func newPlanner(
	cfg *config.Config,
	providers *resilience.Registry,
	metrics *telemetry.ProviderMetrics,
	log zerolog.Logger,
) (*planner.Service, func()) {
	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:       "dashscope",
		Timeout:    cfg.Planner.Timeout,
		MaxRetries: cfg.Planner.MaxRetries,
		Registry:   providers,
		Logger:     log,
	})

	client := planner.NewClient(planner.ClientConfig{
		APIKey:      cfg.Planner.APIKey,
		BaseURL:     cfg.Planner.BaseURL,
		Model:       cfg.Planner.Model,
		Temperature: cfg.Planner.Temperature,
		HTTPClient:  httpClient,
		Logger:      log,
	})

	var cache planner.Cache
	closeCache := func() {}
	if cfg.Valkey.Addr != "" {
		vc, err := planner.NewValkeyCache(cfg.Valkey.Addr, "tripmap:")
		if err != nil {
			log.Warn().Err(err).Msg("valkey unavailable - using in-memory itinerary cache")
			cache = planner.NewMemoryCache()
		} else {
			cache = vc
			closeCache = vc.Close
			log.Info().Str("addr", cfg.Valkey.Addr).Msg("itinerary cache connected")
		}
	} else {
		cache = planner.NewMemoryCache()
	}

	return planner.NewService(planner.ServiceConfig{
		Completer: client,
		Model:     cfg.Planner.Model,
		Cache:     cache,
		CacheTTL:  cfg.Planner.CacheTTL,
		Metrics:   metrics,
		Logger:    log,
	}), closeCache
}
