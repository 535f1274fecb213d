// Package itinerary provides the itinerary document model and saved-itinerary storage.
package itinerary

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Repository errors.
var (
	ErrItineraryNotFound = errors.New("itinerary not found")
	ErrUserMismatch      = errors.New("user id does not match authenticated user")
	ErrTitleRequired     = errors.New("title is required")
	ErrPayloadRequired   = errors.New("payload is required")
)

// Document is a day-by-day itinerary as produced by the language model.
// It is treated as immutable once decoded.
type Document struct {
	Title               string `json:"title"`
	Currency            string `json:"currency"`
	TotalBudgetEstimate Number `json:"total_budget_estimate"`
	Days                []Day  `json:"days"`
}

// Day is one travel day. The slice order in Document.Days is the travel order.
type Day struct {
	Date              string     `json:"date"`
	City              string     `json:"city"`
	Transport         string     `json:"transport,omitempty"`
	DailyCostEstimate Number     `json:"daily_cost_estimate"`
	Activities        []Activity `json:"activities"`
	Hotel             *Hotel     `json:"hotel,omitempty"`
	Meals             []Meal     `json:"meals,omitempty"`
}

// Activity is a scheduled sight, tour or experience.
type Activity struct {
	Time         string `json:"time,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Lat          Number `json:"lat"`
	Lng          Number `json:"lng"`
	CostEstimate Number `json:"cost_estimate"`
	Tips         string `json:"tips,omitempty"`
}

// Hotel is the accommodation for a day.
type Hotel struct {
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Lat           Number `json:"lat"`
	Lng           Number `json:"lng"`
	PricePerNight Number `json:"price_per_night"`
}

// Meal is a restaurant or food stop.
type Meal struct {
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Lat           Number `json:"lat"`
	Lng           Number `json:"lng"`
	PriceEstimate Number `json:"price_estimate"`
}

// Destination returns the first day's city, falling back to the first word of the title.
func (d *Document) Destination() string {
	if d == nil {
		return ""
	}
	if len(d.Days) > 0 && d.Days[0].City != "" {
		return d.Days[0].City
	}
	if fields := strings.Fields(d.Title); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Number is an optional numeric field. Model output is loosely typed, so a
// JSON number or a numeric string both decode; anything else leaves the value absent.
type Number struct {
	value float64
	valid bool
}

// NewNumber returns a present Number. NaN and infinities are absent.
func NewNumber(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// Float returns the value and whether it is present.
func (n Number) Float() (float64, bool) {
	return n.value, n.valid
}

// Valid reports whether the value is present.
func (n Number) Valid() bool {
	return n.valid
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on malformed input.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*n = NewNumber(v)
	return nil
}

// Record is a saved itinerary owned by a user.
type Record struct {
	ID        string
	UserID    string
	Title     string
	Payload   *Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the list view of a saved itinerary.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
