package itinerary

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local runs without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory itinerary repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Create stores a new itinerary record.
func (r *InMemoryRepository) Create(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *record
	r.records[record.ID] = &cpy
	return nil
}

// GetByUserAndID retrieves an itinerary by user ID and itinerary ID.
func (r *InMemoryRepository) GetByUserAndID(_ context.Context, userID, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return nil, ErrItineraryNotFound
	}

	cpy := *rec
	return &cpy, nil
}

// ListByUser returns summaries of a user's itineraries, newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0)
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		summaries = append(summaries, Summary{
			ID:        rec.ID,
			Title:     rec.Title,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
