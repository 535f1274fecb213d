// Package selection keeps the active day and the active point of a displayed itinerary
// in sync across map clicks, list clicks and day switches.
package selection

import (
	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/mapview"
	"github.com/tripmap/tripmap/internal/poi"
)

// Phase is the coarse state of a Coordinator.
type Phase int

const (
	// NoItinerary means no document with at least one day is loaded.
	NoItinerary Phase = iota
	// DaySelected means a day is selected; an active point may or may not be set.
	DaySelected
)

func (p Phase) String() string {
	switch p {
	case DaySelected:
		return "day_selected"
	default:
		return "no_itinerary"
	}
}

// State is the selection state. Active is nil when no point is active; when set it
// is an element of the selected day's point sequence at ActiveIndex.
type State struct {
	Phase       Phase
	DayIndex    int
	Active      *poi.GeoPoint
	ActiveIndex int
}

// HasActive reports whether a point is active.
func (s State) HasActive() bool {
	return s.Active != nil
}

// MapView is the part of the map adapter the coordinator drives.
type MapView interface {
	SetMarkers(points []mapview.Point)
	OnMarkerActivated(fn func(mapview.Point))
}

// Config holds configuration for a Coordinator.
type Config struct {
	// Map receives the selected day's points. Optional.
	Map MapView

	// Tolerance for resolving map activations, in degrees (default: poi.DefaultTolerance).
	Tolerance float64

	Logger zerolog.Logger
}

// Coordinator is the selection state machine. It is the only writer of its State.
//
// A Coordinator is not safe for concurrent use. Callers deliver events one at a time
// and each event runs to completion before the next.
type Coordinator struct {
	mapView   MapView
	tolerance float64
	logger    zerolog.Logger

	doc      *itinerary.Document
	set      poi.DayMarkerSet
	state    State
	onChange func(State)
	resolved func(matched bool)
}

// NewCoordinator creates a coordinator in the NoItinerary phase and subscribes it to
// marker activations of cfg.Map.
func NewCoordinator(cfg Config) *Coordinator {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = poi.DefaultTolerance
	}

	c := &Coordinator{
		mapView:   cfg.Map,
		tolerance: tolerance,
		logger:    cfg.Logger,
		state:     State{Phase: NoItinerary, ActiveIndex: -1},
	}

	if c.mapView != nil {
		c.mapView.OnMarkerActivated(func(p mapview.Point) {
			c.ActivateFromMap(p.Lng, p.Lat, p.Name)
		})
	}
	return c
}

// OnChange registers a callback invoked with the new state after every transition.
// Registering again replaces the previous callback.
func (c *Coordinator) OnChange(fn func(State)) {
	c.onChange = fn
}

// OnMapResolved registers a callback invoked with the outcome of every map activation,
// whether it came from a marker click or from raw coordinates.
func (c *Coordinator) OnMapResolved(fn func(matched bool)) {
	c.resolved = fn
}

// Load replaces the document. The point sets are rebuilt and day 0 is selected with its
// first point active. A document with no days leaves the coordinator in NoItinerary.
func (c *Coordinator) Load(doc *itinerary.Document) {
	c.doc = doc
	c.set = poi.Extract(doc)

	if c.set.Days() == 0 {
		c.reset()
		return
	}

	c.enterDay(0)
	c.logger.Debug().
		Int("days", c.set.Days()).
		Ints("points_per_day", c.set.Counts()).
		Msg("itinerary loaded")
}

// Clear drops the document and returns to NoItinerary.
func (c *Coordinator) Clear() {
	c.doc = nil
	c.set = nil
	c.reset()
}

func (c *Coordinator) reset() {
	c.state = State{Phase: NoItinerary, ActiveIndex: -1}
	c.push(nil)
	c.notify()
}

// SelectDay selects day d and activates its first point, or none when the day is empty.
// It reports false, leaving the state unchanged, when no itinerary is loaded or d is
// out of range.
func (c *Coordinator) SelectDay(d int) bool {
	if c.state.Phase != DaySelected || d < 0 || d >= c.set.Days() {
		c.logger.Debug().
			Int("day", d).
			Int("days", c.set.Days()).
			Msg("day selection ignored")
		return false
	}

	c.enterDay(d)
	return true
}

func (c *Coordinator) enterDay(d int) {
	points := c.set.Day(d)

	c.state = State{Phase: DaySelected, DayIndex: d, ActiveIndex: -1}
	if len(points) > 0 {
		c.setActive(points, 0)
	}

	c.push(points)
	c.notify()
}

// ActivateFromMap resolves a raw map activation against the selected day's points and
// activates the first point within tolerance. Misses leave the state unchanged.
func (c *Coordinator) ActivateFromMap(lng, lat float64, name string) bool {
	if c.state.Phase != DaySelected {
		c.logger.Debug().
			Float64("lng", lng).
			Float64("lat", lat).
			Msg("map activation with no itinerary loaded")
		c.reportResolution(false)
		return false
	}

	points := c.set.Day(c.state.DayIndex)
	idx, ok := poi.Match(points, lng, lat, c.tolerance)
	if !ok {
		c.logger.Debug().
			Int("day", c.state.DayIndex).
			Float64("lng", lng).
			Float64("lat", lat).
			Str("name", name).
			Msg("map activation matched no point")
		c.reportResolution(false)
		return false
	}

	c.setActive(points, idx)
	c.notify()
	c.reportResolution(true)
	return true
}

func (c *Coordinator) reportResolution(matched bool) {
	if c.resolved != nil {
		c.resolved(matched)
	}
}

// ActivateFromList activates the point at index within the selected day.
func (c *Coordinator) ActivateFromList(index int) bool {
	if c.state.Phase != DaySelected {
		return false
	}

	points := c.set.Day(c.state.DayIndex)
	if index < 0 || index >= len(points) {
		c.logger.Debug().
			Int("day", c.state.DayIndex).
			Int("index", index).
			Msg("list activation out of range")
		return false
	}

	c.setActive(points, index)
	c.notify()
	return true
}

func (c *Coordinator) setActive(points []poi.GeoPoint, idx int) {
	p := points[idx]
	c.state.Active = &p
	c.state.ActiveIndex = idx
}

func (c *Coordinator) push(points []poi.GeoPoint) {
	if c.mapView == nil {
		return
	}
	out := make([]mapview.Point, len(points))
	for i, p := range points {
		out[i] = mapview.Point{Lng: p.Lng, Lat: p.Lat, Name: p.Name}
	}
	c.mapView.SetMarkers(out)
}

func (c *Coordinator) notify() {
	if c.onChange != nil {
		c.onChange(c.State())
	}
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	s := c.state
	if s.Active != nil {
		p := *s.Active
		s.Active = &p
	}
	return s
}

// Document returns the loaded document, or nil.
func (c *Coordinator) Document() *itinerary.Document {
	return c.doc
}

// DayCount returns the number of days in the loaded document.
func (c *Coordinator) DayCount() int {
	return c.set.Days()
}

// PointCounts returns the number of geocoded points per day.
func (c *Coordinator) PointCounts() []int {
	return c.set.Counts()
}

// Points returns a copy of the selected day's points.
func (c *Coordinator) Points() []poi.GeoPoint {
	if c.state.Phase != DaySelected {
		return nil
	}
	points := c.set.Day(c.state.DayIndex)
	out := make([]poi.GeoPoint, len(points))
	copy(out, points)
	return out
}

// NavigationTarget returns the active point, falling back to the first point of the
// selected day. It reports false when the day has no points.
func (c *Coordinator) NavigationTarget() (poi.GeoPoint, bool) {
	if c.state.Active != nil {
		return *c.state.Active, true
	}
	if c.state.Phase != DaySelected {
		return poi.GeoPoint{}, false
	}
	points := c.set.Day(c.state.DayIndex)
	if len(points) == 0 {
		return poi.GeoPoint{}, false
	}
	return points[0], true
}
