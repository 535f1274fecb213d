// Package api provides the HTTP API for tripmap.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/api/handler"
	"github.com/tripmap/tripmap/internal/api/middleware"
	"github.com/tripmap/tripmap/internal/auth"
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/provider/resilience"
	"github.com/tripmap/tripmap/internal/session"
	"github.com/tripmap/tripmap/internal/worker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Verifier        auth.TokenVerifier
	Itineraries     *itinerary.Service
	Planner         handler.Planner
	Publisher       worker.JobPublisher
	Sessions        *session.Manager
	Providers       *resilience.Registry
	ReadinessChecks map[string]handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tripmap-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Subsystems: cfg.ReadinessChecks,
		Providers:  cfg.Providers,
		Sessions:   cfg.Sessions,
	})
	itineraryHandler := handler.NewItineraryHandler(cfg.Itineraries)
	planHandler := handler.NewPlanHandler(cfg.Planner, cfg.Publisher)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Itineraries, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Verifier)
	optionalAuth := middleware.OptionalAuth(cfg.Verifier)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByUser(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByUser(middleware.StandardRateLimit)   // 100 req/min
	sessionRateLimit := middleware.RateLimitBySession(middleware.SessionRateLimit)  // 240 req/min per session

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Saved itineraries (authenticated)
		if cfg.Itineraries != nil {
			r.Route("/itineraries", func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(standardRateLimit)
				r.Get("/", itineraryHandler.ListItineraries)
				r.Post("/", itineraryHandler.SaveItinerary)
				r.Get("/{itineraryId}", itineraryHandler.GetItinerary)
			})
		}

		// Generation - expensive upstream calls, strict rate limiting
		if cfg.Planner != nil {
			r.Route("/plans", func(r chi.Router) {
				r.With(optionalAuth, expensiveRateLimit).Post("/", planHandler.CreatePlan)
				r.With(optionalAuth, expensiveRateLimit).Post("/parse", planHandler.ParsePlan)
				r.With(authMiddleware, expensiveRateLimit).Post("/jobs", planHandler.CreatePlanJob)
			})
		}

		// Viewer sessions - anonymous unless opening a saved itinerary
		if cfg.Sessions != nil {
			r.Route("/sessions", func(r chi.Router) {
				r.Use(optionalAuth)
				r.With(standardRateLimit).Post("/", sessionHandler.CreateSession)
				r.Route("/{sessionId}", func(r chi.Router) {
					r.Use(sessionRateLimit)
					r.Get("/", sessionHandler.GetSession)
					r.Delete("/", sessionHandler.DeleteSession)
					r.Put("/document", sessionHandler.LoadDocument)
					r.Delete("/document", sessionHandler.ClearDocument)
					r.Put("/day", sessionHandler.SelectDay)
					r.Post("/activations:map", sessionHandler.ActivateFromMap)
					r.Post("/activations:list", sessionHandler.ActivateFromList)
					r.Post("/resize", sessionHandler.Resize)
					r.Get("/navigation", sessionHandler.GetNavigation)
				})
			})
		}
	})

	return r
}
