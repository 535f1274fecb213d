// Package worker runs asynchronous itinerary generation jobs delivered over Pub/Sub.
package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tripmap/tripmap/internal/planner"
)

// Job types.
const (
	JobTypeGenerateItinerary = "generate_itinerary"
	JobTypeHealthCheck       = "health_check"
)

// ErrInvalidJob marks a message that can never succeed.
var ErrInvalidJob = errors.New("invalid job")

// Job is the Pub/Sub message body.
type Job struct {
	JobType string `json:"job_type"`
	JobID   string `json:"job_id,omitempty"`

	// UserID owns the generated itinerary.
	UserID string `json:"user_id,omitempty"`

	// Title of the saved itinerary. Empty uses the generated title.
	Title string `json:"title,omitempty"`

	Request planner.Request `json:"request"`
}

// Validate checks the fields a job type needs.
func (j Job) Validate() error {
	switch j.JobType {
	case JobTypeGenerateItinerary:
		if strings.TrimSpace(j.UserID) == "" {
			return fmt.Errorf("%w: user_id is required", ErrInvalidJob)
		}
		if err := j.Request.Normalize().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
		return nil
	case JobTypeHealthCheck:
		return nil
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, j.JobType)
	}
}
