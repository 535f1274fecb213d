package models

import (
	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/mapview/geojson"
	"github.com/tripmap/tripmap/internal/poi"
	"github.com/tripmap/tripmap/internal/selection"
	"github.com/tripmap/tripmap/internal/session"
)

// CreateSessionRequest opens a viewer on an inline document or a saved itinerary.
// Exactly one of Document and ItineraryID must be set.
type CreateSessionRequest struct {
	Document    *itinerary.Document `json:"document,omitempty"`
	ItineraryID string              `json:"itineraryId,omitempty"`
}

// LoadDocumentRequest replaces a session's document.
type LoadDocumentRequest struct {
	Document *itinerary.Document `json:"document"`
}

// SelectDayRequest switches the selected day.
type SelectDayRequest struct {
	DayIndex *int `json:"dayIndex"`
}

// MapActivationRequest reports a marker click, either by marker id or by the
// position the map reported.
type MapActivationRequest struct {
	MarkerID *int     `json:"markerId,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Name     string   `json:"name,omitempty"`
}

// ListActivationRequest reports a click on an itinerary list entry.
type ListActivationRequest struct {
	Index *int `json:"index"`
}

// Navigation is a deep link to an external navigation app.
type Navigation struct {
	URL string `json:"url"`
}

// GeoPoint is a point of interest on the selected day.
type GeoPoint struct {
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	Name     string  `json:"name"`
	DayIndex int     `json:"dayIndex"`
	Kind     string  `json:"kind"`
}

// SelectionState is the session's selection.
type SelectionState struct {
	Phase       string    `json:"phase"`
	DayIndex    *int      `json:"dayIndex,omitempty"`
	ActivePoint *GeoPoint `json:"activePoint,omitempty"`
	ActiveIndex *int      `json:"activeIndex,omitempty"`
}

// DayInfo summarises one itinerary day.
type DayInfo struct {
	Index      int    `json:"index"`
	Date       string `json:"date,omitempty"`
	City       string `json:"city,omitempty"`
	PointCount int    `json:"pointCount"`
}

// MapState is the rendered map. Fields other than Available are omitted while
// the map is unavailable.
type MapState struct {
	Available      bool                       `json:"available"`
	Center         *[2]float64                `json:"center,omitempty"`
	Zoom           float64                    `json:"zoom,omitempty"`
	Markers        *geojson.FeatureCollection `json:"markers,omitempty"`
	Path           string                     `json:"path,omitempty"`
	DistanceMeters float64                    `json:"distanceMeters,omitempty"`
}

// Session is a viewer session.
type Session struct {
	ID            string         `json:"id"`
	State         SelectionState `json:"state"`
	DayCount      int            `json:"dayCount"`
	Days          []DayInfo      `json:"days"`
	Points        []GeoPoint     `json:"points"`
	Map           MapState       `json:"map"`
	NavigationURL string         `json:"navigationUrl,omitempty"`
}

// NewSession converts a session view.
func NewSession(v *session.View) Session {
	out := Session{
		ID:            v.ID,
		DayCount:      v.DayCount,
		Days:          make([]DayInfo, len(v.Days)),
		Points:        make([]GeoPoint, len(v.Points)),
		NavigationURL: v.NavigationURL,
		State:         SelectionState{Phase: v.State.Phase.String()},
	}

	if v.State.Phase == selection.DaySelected {
		day := v.State.DayIndex
		out.State.DayIndex = &day
	}
	if v.State.Active != nil {
		p := newGeoPoint(*v.State.Active)
		idx := v.State.ActiveIndex
		out.State.ActivePoint = &p
		out.State.ActiveIndex = &idx
	}

	for i, d := range v.Days {
		out.Days[i] = DayInfo{Index: d.Index, Date: d.Date, City: d.City, PointCount: d.PointCount}
	}
	for i, p := range v.Points {
		out.Points[i] = newGeoPoint(p)
	}

	out.Map = newMapState(v.Map)
	return out
}

func newGeoPoint(p poi.GeoPoint) GeoPoint {
	return GeoPoint{Lng: p.Lng, Lat: p.Lat, Name: p.Name, DayIndex: p.DayIndex, Kind: string(p.Kind)}
}

func newMapState(m session.MapState) MapState {
	if !m.Available || m.Surface == nil {
		return MapState{Available: false}
	}
	return MapState{
		Available:      true,
		Center:         &m.Surface.Center,
		Zoom:           m.Surface.Zoom,
		Markers:        &m.Surface.Features,
		Path:           m.Surface.Path,
		DistanceMeters: m.Surface.DistanceMeters,
	}
}
