package session

import (
	"github.com/tripmap/tripmap/internal/mapview/geojson"
	"github.com/tripmap/tripmap/internal/poi"
	"github.com/tripmap/tripmap/internal/selection"
)

// View is what a client needs to render a session.
type View struct {
	ID       string
	State    selection.State
	DayCount int
	Days     []DayInfo

	// Points are the selected day's points in list order.
	Points []poi.GeoPoint

	Map MapState

	// NavigationURL is empty when the selected day has no points.
	NavigationURL string
}

// DayInfo summarises one itinerary day.
type DayInfo struct {
	Index      int
	Date       string
	City       string
	PointCount int
}

// MapState is the rendered map. Surface is nil while the map is unavailable.
type MapState struct {
	Available bool
	Surface   *geojson.View
}

// view must be called with s.mu held.
func (m *Manager) view(s *Session) *View {
	v := &View{
		ID:       s.id,
		State:    s.coord.State(),
		DayCount: s.coord.DayCount(),
		Points:   s.coord.Points(),
	}

	counts := s.coord.PointCounts()
	doc := s.coord.Document()
	v.Days = make([]DayInfo, len(counts))
	for i, n := range counts {
		v.Days[i] = DayInfo{Index: i, PointCount: n}
		if doc != nil && i < len(doc.Days) {
			v.Days[i].Date = doc.Days[i].Date
			v.Days[i].City = doc.Days[i].City
		}
	}

	if s.adapter.Available() {
		if surface := s.provider.Surface(); surface != nil {
			rendered := surface.Render()
			v.Map = MapState{Available: true, Surface: &rendered}
		}
	}

	if p, ok := s.coord.NavigationTarget(); ok {
		v.NavigationURL = m.nav.Link(p)
	}

	return v
}
