// Package planner asks a hosted language model for a day-by-day itinerary.
package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for planner operations.
var (
	ErrInvalidRequest      = errors.New("invalid plan request")
	ErrNotConfigured       = errors.New("planner api key not configured")
	ErrBadModelOutput      = errors.New("model returned unparseable itinerary")
	ErrProviderUnavailable = errors.New("planner provider unavailable")
	ErrRateLimitExceeded   = errors.New("planner provider rate limit exceeded")
	ErrUpstreamRejected    = errors.New("planner provider rejected the request")
)

const dateLayout = "2006-01-02"

// Request describes the trip to plan. Everything but the destination is optional
// and passed to the model as written.
type Request struct {
	Destination string `json:"destination"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Budget      string `json:"budget,omitempty"`
	People      string `json:"people,omitempty"`
	Prefs       string `json:"prefs,omitempty"`
}

// Normalize trims every field.
func (r Request) Normalize() Request {
	return Request{
		Destination: strings.TrimSpace(r.Destination),
		StartDate:   strings.TrimSpace(r.StartDate),
		EndDate:     strings.TrimSpace(r.EndDate),
		Budget:      strings.TrimSpace(r.Budget),
		People:      strings.TrimSpace(r.People),
		Prefs:       strings.TrimSpace(r.Prefs),
	}
}

// FieldError names the request field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidRequest
}

// Validate checks the normalized request.
func (r Request) Validate() error {
	if r.Destination == "" {
		return &FieldError{Field: "destination", Message: "is required"}
	}

	var start, end time.Time
	var err error
	if r.StartDate != "" {
		if start, err = time.Parse(dateLayout, r.StartDate); err != nil {
			return &FieldError{Field: "startDate", Message: "must be YYYY-MM-DD"}
		}
	}
	if r.EndDate != "" {
		if end, err = time.Parse(dateLayout, r.EndDate); err != nil {
			return &FieldError{Field: "endDate", Message: "must be YYYY-MM-DD"}
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return &FieldError{Field: "endDate", Message: "must not be before startDate"}
	}
	return nil
}

// Error provides detailed error information from the model provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code
	Message  string // Human-readable error message
	Raw      string // Model output excerpt, for unparseable responses
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the request may succeed if sent again later.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s…", s[:n])
}
