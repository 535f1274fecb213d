package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tripmap/tripmap/internal/api/models"
	"github.com/tripmap/tripmap/internal/api/response"
	"github.com/tripmap/tripmap/internal/itinerary"
)

// ItineraryHandler handles saved itinerary endpoints.
type ItineraryHandler struct {
	service *itinerary.Service
}

// NewItineraryHandler creates a new ItineraryHandler.
func NewItineraryHandler(service *itinerary.Service) *ItineraryHandler {
	return &ItineraryHandler{service: service}
}

// SaveItinerary handles POST /v1/itineraries - save an itinerary.
func (h *ItineraryHandler) SaveItinerary(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var req models.SaveItineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	rec, err := h.service.Save(r.Context(), userID, itinerary.SaveInput{
		ClaimedUserID: req.UserID,
		Title:         req.Title,
		Payload:       req.Payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, itinerary.ErrUserMismatch):
			response.Forbidden(w, r, err.Error())
		case errors.Is(err, itinerary.ErrTitleRequired):
			response.BadRequest(w, r, "validation failed", []models.FieldError{
				{Field: "title", Message: "is required"},
			})
		case errors.Is(err, itinerary.ErrPayloadRequired):
			response.BadRequest(w, r, "validation failed", []models.FieldError{
				{Field: "payload", Message: "is required"},
			})
		default:
			response.InternalError(w, r, "failed to save itinerary")
		}
		return
	}

	response.Created(w, r, "/v1/itineraries/"+rec.ID, models.NewItinerary(rec))
}

// ListItineraries handles GET /v1/itineraries - list saved itineraries.
func (h *ItineraryHandler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to list itineraries")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewPagedItineraries(items))
}

// GetItinerary handles GET /v1/itineraries/{itineraryId} - get a saved itinerary.
func (h *ItineraryHandler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	rec, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "itineraryId"))
	if err != nil {
		if errors.Is(err, itinerary.ErrItineraryNotFound) {
			response.NotFound(w, r, "itinerary not found")
			return
		}
		response.InternalError(w, r, "failed to load itinerary")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewItinerary(rec))
}
