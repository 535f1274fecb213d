package itinerary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SaveInput holds the fields for saving an itinerary.
type SaveInput struct {
	// ClaimedUserID is the user id sent by the client, if any.
	// When set it must equal the authenticated user.
	ClaimedUserID string
	Title         string
	Payload       *Document
}

// Service provides saved itinerary operations for an authenticated user.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// ServiceConfig holds configuration for the itinerary service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// NewService creates a new itinerary service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// Save stores an itinerary under the authenticated user.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*Record, error) {
	if in.ClaimedUserID != "" && in.ClaimedUserID != userID {
		return nil, ErrUserMismatch
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if in.Payload == nil {
		return nil, ErrPayloadRequired
	}

	now := s.now().UTC()
	rec := &Record{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Payload:   in.Payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving itinerary: %w", err)
	}

	s.logger.Info().
		Str("itinerary_id", rec.ID).
		Str("user_id", userID).
		Int("days", len(in.Payload.Days)).
		Msg("itinerary saved")

	return rec, nil
}

// List returns the user's saved itineraries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one of the user's saved itineraries.
func (s *Service) Get(ctx context.Context, userID, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrItineraryNotFound
	}
	return s.repo.GetByUserAndID(ctx, userID, id)
}
