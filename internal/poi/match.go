package poi

import "math"

// DefaultTolerance is the per-axis coordinate tolerance in degrees (about 11 m).
// Coordinates round-trip through the map SDK and may lose bits on the way back.
const DefaultTolerance = 1e-4

// SamePlace reports whether two coordinates agree within eps on both axes.
func SamePlace(lngA, latA, lngB, latB, eps float64) bool {
	return math.Abs(lngA-lngB) < eps && math.Abs(latA-latB) < eps
}

// Match returns the index of the first point within eps of (lng, lat).
func Match(points []GeoPoint, lng, lat, eps float64) (int, bool) {
	for i, p := range points {
		if SamePlace(p.Lng, p.Lat, lng, lat, eps) {
			return i, true
		}
	}
	return -1, false
}
