package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/api/models"
	"github.com/tripmap/tripmap/internal/api/response"
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/session"
)

// SessionHandler handles viewer session endpoints.
type SessionHandler struct {
	sessions    *session.Manager
	itineraries *itinerary.Service
	logger      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler. itineraries may be nil, which
// disables opening saved itineraries.
func NewSessionHandler(sessions *session.Manager, itineraries *itinerary.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, itineraries: itineraries, logger: logger}
}

// CreateSession handles POST /v1/sessions - open a viewer on a document or saved itinerary.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	doc := req.Document
	switch {
	case doc != nil && req.ItineraryID != "":
		response.BadRequest(w, r, "send either document or itineraryId, not both", nil)
		return
	case doc == nil && req.ItineraryID == "":
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "document", Message: "document or itineraryId is required"},
		})
		return
	case doc == nil:
		userID := GetUserID(r.Context())
		if userID == "" {
			response.Unauthorized(w, r, "opening a saved itinerary requires authentication")
			return
		}
		if h.itineraries == nil {
			response.ServiceUnavailable(w, r, "saved itineraries not configured")
			return
		}
		rec, err := h.itineraries.Get(r.Context(), userID, req.ItineraryID)
		if err != nil {
			if errors.Is(err, itinerary.ErrItineraryNotFound) {
				response.NotFound(w, r, "itinerary not found")
				return
			}
			response.InternalError(w, r, "failed to load itinerary")
			return
		}
		doc = rec.Payload
	}

	view, err := h.sessions.Create(r.Context(), doc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/sessions/"+view.ID, models.NewSession(view))
}

// GetSession handles GET /v1/sessions/{sessionId}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.sessions.Get(sessionID(r)))
}

// LoadDocument handles PUT /v1/sessions/{sessionId}/document - replace the document.
func (h *SessionHandler) LoadDocument(w http.ResponseWriter, r *http.Request) {
	var req models.LoadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.Document == nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "document", Message: "is required"},
		})
		return
	}

	h.respond(w, r)(h.sessions.Load(sessionID(r), req.Document))
}

// ClearDocument handles DELETE /v1/sessions/{sessionId}/document - drop the document.
func (h *SessionHandler) ClearDocument(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.sessions.Clear(sessionID(r)))
}

// SelectDay handles PUT /v1/sessions/{sessionId}/day.
func (h *SessionHandler) SelectDay(w http.ResponseWriter, r *http.Request) {
	var req models.SelectDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.DayIndex == nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "dayIndex", Message: "is required"},
		})
		return
	}

	h.respond(w, r)(h.sessions.SelectDay(sessionID(r), *req.DayIndex))
}

// ActivateFromMap handles POST /v1/sessions/{sessionId}/activations:map.
// A position matching no point of the selected day leaves the state unchanged.
func (h *SessionHandler) ActivateFromMap(w http.ResponseWriter, r *http.Request) {
	var req models.MapActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	id := sessionID(r)
	switch {
	case req.MarkerID != nil:
		h.respond(w, r)(h.sessions.ActivateMarker(id, *req.MarkerID))
	case req.Lng != nil && req.Lat != nil:
		h.respond(w, r)(h.sessions.ActivateCoordinates(id, *req.Lng, *req.Lat, req.Name))
	default:
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "markerId", Message: "markerId or lng and lat are required"},
		})
	}
}

// ActivateFromList handles POST /v1/sessions/{sessionId}/activations:list.
func (h *SessionHandler) ActivateFromList(w http.ResponseWriter, r *http.Request) {
	var req models.ListActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.Index == nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "index", Message: "is required"},
		})
		return
	}

	h.respond(w, r)(h.sessions.ActivateIndex(sessionID(r), *req.Index))
}

// Resize handles POST /v1/sessions/{sessionId}/resize - the map container changed size.
func (h *SessionHandler) Resize(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.sessions.Resize(sessionID(r)))
}

// GetNavigation handles GET /v1/sessions/{sessionId}/navigation.
func (h *SessionHandler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	link, err := h.sessions.NavigationURL(sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.Navigation{URL: link})
}

// DeleteSession handles DELETE /v1/sessions/{sessionId}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(sessionID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionId")
}

// respond writes a session view or the error that replaced it.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request) func(*session.View, error) {
	return func(view *session.View, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		response.JSON(w, r, http.StatusOK, models.NewSession(view))
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		response.NotFound(w, r, "session not found")
	case errors.Is(err, session.ErrTooManySessions):
		response.ServiceUnavailable(w, r, "too many active sessions")
	case errors.Is(err, session.ErrDayOutOfRange):
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "dayIndex", Message: "out of range"},
		})
	case errors.Is(err, session.ErrIndexOutOfRange):
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "index", Message: "out of range"},
		})
	case errors.Is(err, session.ErrMarkerNotFound):
		response.NotFound(w, r, "marker not found")
	case errors.Is(err, session.ErrNoItinerary):
		response.Conflict(w, r, "no itinerary loaded")
	case errors.Is(err, session.ErrMapUnavailable):
		response.Conflict(w, r, "map unavailable")
	case errors.Is(err, session.ErrNothingToNavigate):
		response.Conflict(w, r, "selected day has no points")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("session request failed")
		response.InternalError(w, r, "internal server error")
	}
}
