// Package poi derives per-day geolocated points of interest from an itinerary document.
package poi

import (
	"github.com/tripmap/tripmap/internal/itinerary"
)

// SourceKind identifies which part of a day a point came from.
type SourceKind string

const (
	KindActivity SourceKind = "activity"
	KindHotel    SourceKind = "hotel"
	KindMeal     SourceKind = "meal"
)

// GeoPoint is a named location derived from an itinerary day.
type GeoPoint struct {
	Lng      float64
	Lat      float64
	Name     string
	DayIndex int
	Kind     SourceKind
}

// DayMarkerSet holds one ordered point sequence per itinerary day.
// Index i holds the points of day i; a day without coordinates has an empty slice.
type DayMarkerSet [][]GeoPoint

// Days returns the number of days in the set.
func (s DayMarkerSet) Days() int {
	return len(s)
}

// Day returns the points of day i, or nil when i is out of range.
func (s DayMarkerSet) Day(i int) []GeoPoint {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// Counts returns the number of points per day.
func (s DayMarkerSet) Counts() []int {
	counts := make([]int, len(s))
	for i, pts := range s {
		counts[i] = len(pts)
	}
	return counts
}

// Extract walks the document and returns one point sequence per day, in day order.
// Within a day the order is activities, then the hotel, then meals. Entries missing
// either coordinate are skipped. A nil or day-less document yields an empty set.
func Extract(doc *itinerary.Document) DayMarkerSet {
	if doc == nil || len(doc.Days) == 0 {
		return DayMarkerSet{}
	}

	set := make(DayMarkerSet, len(doc.Days))
	for dayIndex, day := range doc.Days {
		pts := make([]GeoPoint, 0, len(day.Activities)+len(day.Meals)+1)

		for _, a := range day.Activities {
			if p, ok := newPoint(a.Lat, a.Lng, a.Name, dayIndex, KindActivity); ok {
				pts = append(pts, p)
			}
		}

		if day.Hotel != nil {
			h := day.Hotel
			if p, ok := newPoint(h.Lat, h.Lng, h.Name, dayIndex, KindHotel); ok {
				pts = append(pts, p)
			}
		}

		for _, m := range day.Meals {
			if p, ok := newPoint(m.Lat, m.Lng, m.Name, dayIndex, KindMeal); ok {
				pts = append(pts, p)
			}
		}

		set[dayIndex] = pts
	}

	return set
}

func newPoint(lat, lng itinerary.Number, name string, dayIndex int, kind SourceKind) (GeoPoint, bool) {
	latV, latOK := lat.Float()
	lngV, lngOK := lng.Float()
	if !latOK || !lngOK {
		return GeoPoint{}, false
	}
	return GeoPoint{
		Lng:      lngV,
		Lat:      latV,
		Name:     name,
		DayIndex: dayIndex,
		Kind:     kind,
	}, true
}
