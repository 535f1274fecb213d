package models

import (
	"github.com/tripmap/tripmap/internal/itinerary"
)

// PlanRequest is the request body for generating an itinerary.
type PlanRequest struct {
	Destination string `json:"destination"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Budget      string `json:"budget,omitempty"`
	People      string `json:"people,omitempty"`
	Prefs       string `json:"prefs,omitempty"`
}

// ParsePlanRequest carries free text, typically a voice transcript, to turn into a PlanRequest.
type ParsePlanRequest struct {
	Text string `json:"text"`
}

// PlanJobRequest queues a generation whose result is saved under the caller's account.
type PlanJobRequest struct {
	PlanRequest

	// Title for the saved itinerary (default: the generated title).
	Title string `json:"title,omitempty"`
}

// Plan is a generated itinerary.
type Plan struct {
	Itinerary *itinerary.Document `json:"itinerary"`
}

// PlanJobStatus is the state of a queued generation.
type PlanJobStatus string

const (
	PlanJobQueued PlanJobStatus = "QUEUED"
)

// PlanJob acknowledges a queued generation.
type PlanJob struct {
	JobID  string        `json:"jobId"`
	Status PlanJobStatus `json:"status"`
}
