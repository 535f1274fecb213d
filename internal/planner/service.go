package planner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/telemetry"
)

// Completer produces raw model output for a prompt.
type Completer interface {
	Name() string
	Configured() bool
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ServiceConfig holds configuration for the planner service.
type ServiceConfig struct {
	// Completer calls the model.
	Completer Completer

	// Model is folded into cache keys.
	Model string

	// Cache for generated itineraries. Optional.
	Cache Cache

	// CacheTTL is how long generated itineraries are reused (default: 1 hour).
	CacheTTL time.Duration

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service generates itineraries.
type Service struct {
	completer Completer
	model     string
	cache     Cache
	cacheTTL  time.Duration
	metrics   *telemetry.ProviderMetrics
	logger    zerolog.Logger
}

// NewService creates a new planner service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Service{
		completer: cfg.Completer,
		model:     model,
		cache:     cfg.Cache,
		cacheTTL:  cacheTTL,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Configured reports whether generation is possible.
func (s *Service) Configured() bool {
	return s.completer != nil && s.completer.Configured()
}

// Generate validates req, then returns a cached or freshly generated itinerary.
func (s *Service) Generate(ctx context.Context, req Request) (*itinerary.Document, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	key := CacheKey(s.model, req)
	if doc, ok := s.cached(ctx, key); ok {
		return doc, nil
	}

	start := time.Now()
	content, err := s.completer.Complete(ctx, GeneratePrompt(req))
	s.metrics.RecordRequest(s.completer.Name(), "generate", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	doc, raw, err := decode(content)
	if err != nil {
		s.logger.Warn().
			Str("destination", req.Destination).
			Str("raw", excerpt(content, 200)).
			Msg("model output is not an itinerary")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache itinerary")
		}
	}

	s.logger.Info().
		Str("destination", req.Destination).
		Int("days", len(doc.Days)).
		Dur("duration", time.Since(start)).
		Msg("itinerary generated")

	return doc, nil
}

func (s *Service) cached(ctx context.Context, key string) (*itinerary.Document, bool) {
	if s.cache == nil {
		return nil, false
	}

	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("itinerary cache unavailable")
		return nil, false
	}
	if !ok {
		s.metrics.RecordCacheMiss(s.completer.Name(), "generate")
		return nil, false
	}

	var doc itinerary.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, false
	}
	s.metrics.RecordCacheHit(s.completer.Name(), "generate")
	s.logger.Debug().Str("cache_key", key).Msg("cache hit for itinerary")
	return &doc, true
}

// decode extracts and parses the itinerary object from model output.
func decode(content string) (*itinerary.Document, []byte, error) {
	raw, ok := ExtractJSON(content)
	if !ok {
		return nil, nil, badOutput(content, errors.New("no json object found"))
	}

	var doc itinerary.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, badOutput(content, err)
	}
	return &doc, []byte(raw), nil
}

func badOutput(content string, cause error) error {
	return &Error{
		Provider: providerName,
		Code:     "BAD_JSON",
		Message:  "bad JSON from model",
		Raw:      excerpt(content, 2000),
		Err:      errors.Join(ErrBadModelOutput, cause),
	}
}
