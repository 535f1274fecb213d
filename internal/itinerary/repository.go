package itinerary

import "context"

// Repository defines the interface for saved itinerary persistence.
type Repository interface {
	// Create stores a new itinerary record.
	Create(ctx context.Context, record *Record) error

	// GetByUserAndID retrieves an itinerary by user ID and itinerary ID.
	// Returns ErrItineraryNotFound if it doesn't exist or belongs to another user.
	GetByUserAndID(ctx context.Context, userID, id string) (*Record, error)

	// ListByUser returns summaries of a user's itineraries, newest first.
	ListByUser(ctx context.Context, userID string) ([]Summary, error)
}
