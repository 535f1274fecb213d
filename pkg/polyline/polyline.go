// Package polyline encodes point sequences with the Encoded Polyline Algorithm Format
// (https://developers.google.com/maps/documentation/utilities/polylinealgorithm).
// Day routes are shipped to clients in this form so a map can draw the visiting order.
package polyline

import (
	"errors"
	"math"
)

// ErrTruncated is returned when an encoded string ends in the middle of a value.
var ErrTruncated = errors.New("polyline: truncated input")

// Precision is the number of decimal places kept by the encoding.
const Precision = 5

var factor = math.Pow10(Precision)

// Coordinate is a position in degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Encode returns the polyline encoding of coords. An empty input yields "".
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*8)
	var prevLat, prevLng int64

	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lng := int64(math.Round(c.Lng * factor))

		buf = appendSigned(buf, lat-prevLat)
		buf = appendSigned(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func appendSigned(buf []byte, v int64) []byte {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte(0x20|(u&0x1f))+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

// Decode parses an encoded polyline.
func Decode(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	var (
		coords   []Coordinate
		lat, lng int64
		pos      int
	)

	for pos < len(encoded) {
		dLat, next, err := readSigned(encoded, pos)
		if err != nil {
			return nil, err
		}
		dLng, next, err := readSigned(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dLat
		lng += dLng
		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return coords, nil
}

func readSigned(s string, pos int) (int64, int, error) {
	var (
		u     uint64
		shift uint
	)
	for {
		if pos >= len(s) {
			return 0, pos, ErrTruncated
		}
		b := uint64(s[pos]) - 63
		pos++
		u |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	v := int64(u >> 1)
	if u&1 != 0 {
		v = ^v
	}
	return v, pos, nil
}

const earthRadiusMeters = 6371000

// Length returns the great-circle length of the path through coords, in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversine(coords[i-1], coords[i])
	}
	return total
}

func haversine(a, b Coordinate) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad

	sLat := math.Sin(dLat / 2)
	sLng := math.Sin(dLng / 2)
	h := sLat*sLat + math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*sLng*sLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
