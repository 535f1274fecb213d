package models

import (
	"github.com/tripmap/tripmap/internal/itinerary"
)

// SaveItineraryRequest is the request body for saving an itinerary.
type SaveItineraryRequest struct {
	// UserID is optional and must match the bearer token's subject when sent.
	UserID  string              `json:"userId,omitempty"`
	Title   string              `json:"title"`
	Payload *itinerary.Document `json:"payload"`
}

// Itinerary is a saved itinerary.
type Itinerary struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Title     string              `json:"title"`
	Payload   *itinerary.Document `json:"payload,omitempty"`
	CreatedAt Timestamp           `json:"createdAt"`
	UpdatedAt Timestamp           `json:"updatedAt"`
}

// ItinerarySummary is a saved itinerary without its payload.
type ItinerarySummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// PagedItineraries is the list of a user's saved itineraries.
type PagedItineraries struct {
	Items []ItinerarySummary `json:"items"`
	Meta  PagedResponseMeta  `json:"meta"`
}

// NewItinerary converts a saved record.
func NewItinerary(rec *itinerary.Record) Itinerary {
	return Itinerary{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Title:     rec.Title,
		Payload:   rec.Payload,
		CreatedAt: Timestamp(rec.CreatedAt),
		UpdatedAt: Timestamp(rec.UpdatedAt),
	}
}

// NewPagedItineraries converts a list of summaries.
func NewPagedItineraries(items []itinerary.Summary) PagedItineraries {
	out := PagedItineraries{
		Items: make([]ItinerarySummary, len(items)),
		Meta:  PagedResponseMeta{Limit: len(items), Total: len(items)},
	}
	for i, s := range items {
		out.Items[i] = ItinerarySummary{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: Timestamp(s.CreatedAt),
			UpdatedAt: Timestamp(s.UpdatedAt),
		}
	}
	return out
}
