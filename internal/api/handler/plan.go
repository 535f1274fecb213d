package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripmap/tripmap/internal/api/middleware"
	"github.com/tripmap/tripmap/internal/api/models"
	"github.com/tripmap/tripmap/internal/api/response"
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/planner"
	"github.com/tripmap/tripmap/internal/worker"
)

// Planner produces itineraries and turns free text into plan requests.
type Planner interface {
	Generate(ctx context.Context, req planner.Request) (*itinerary.Document, error)
	ParseRequest(ctx context.Context, text string) (planner.Request, error)
}

// PlanHandler handles itinerary generation endpoints.
type PlanHandler struct {
	planner   Planner
	publisher worker.JobPublisher
}

// NewPlanHandler creates a new PlanHandler. publisher may be nil, which disables
// queued generation.
func NewPlanHandler(p Planner, publisher worker.JobPublisher) *PlanHandler {
	return &PlanHandler{planner: p, publisher: publisher}
}

// CreatePlan handles POST /v1/plans - generate an itinerary synchronously.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	doc, err := h.planner.Generate(r.Context(), plannerRequest(req))
	if err != nil {
		writePlannerError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.Plan{Itinerary: doc})
}

// ParsePlan handles POST /v1/plans/parse - extract a plan request from free text.
func (h *PlanHandler) ParsePlan(w http.ResponseWriter, r *http.Request) {
	var req models.ParsePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	parsed, err := h.planner.ParseRequest(r.Context(), req.Text)
	if err != nil {
		writePlannerError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.PlanRequest{
		Destination: parsed.Destination,
		StartDate:   parsed.StartDate,
		EndDate:     parsed.EndDate,
		Budget:      parsed.Budget,
		People:      parsed.People,
		Prefs:       parsed.Prefs,
	})
}

// CreatePlanJob handles POST /v1/plans/jobs - queue a generation saved to the caller's account.
func (h *PlanHandler) CreatePlanJob(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}
	if h.publisher == nil {
		response.ServiceUnavailable(w, r, "job queue not configured")
		return
	}

	var req models.PlanJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	preq := plannerRequest(req.PlanRequest).Normalize()
	if err := preq.Validate(); err != nil {
		writePlannerError(w, r, err)
		return
	}

	jobID, err := h.publisher.Publish(r.Context(), worker.Job{
		JobType: worker.JobTypeGenerateItinerary,
		UserID:  userID,
		Title:   req.Title,
		Request: preq,
	})
	if err != nil {
		response.ServiceUnavailable(w, r, "failed to queue generation")
		return
	}

	response.Accepted(w, r, "", models.PlanJob{JobID: jobID, Status: models.PlanJobQueued})
}

func plannerRequest(req models.PlanRequest) planner.Request {
	return planner.Request{
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		People:      req.People,
		Prefs:       req.Prefs,
	}
}

// writePlannerError maps planner errors to problem responses.
func writePlannerError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *planner.FieldError
	if errors.As(err, &fieldErr) {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: fieldErr.Field, Message: fieldErr.Message},
		})
		return
	}

	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, planner.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "itinerary generation is not configured")
	case errors.Is(err, planner.ErrRateLimitExceeded):
		response.ServiceUnavailable(w, r, "itinerary provider is rate limiting requests")
	case errors.Is(err, planner.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "itinerary provider unavailable")
	case errors.Is(err, planner.ErrBadModelOutput):
		problem := models.NewBadGateway(middleware.GetRequestID(r.Context()), "bad JSON from model")
		var perr *planner.Error
		if errors.As(err, &perr) {
			problem.Raw = perr.Raw
		}
		response.Error(w, r, problem)
	case errors.Is(err, planner.ErrUpstreamRejected):
		response.BadGateway(w, r, "itinerary provider rejected the request")
	case errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "itinerary generation timed out")
	default:
		response.InternalError(w, r, "failed to generate itinerary")
	}
}
