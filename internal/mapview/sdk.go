// Package mapview bridges ordered point sequences to an externally supplied interactive map.
//
// The map provider is reached only through the capability interfaces in this file, so a
// vendor SDK (or the server-side geojson surface) plugs in with a small implementation.
package mapview

import (
	"context"
	"errors"
)

// Map defaults.
const (
	// InitialZoom is the zoom level of a freshly created map.
	InitialZoom = 10.0
	// CloseZoom is used when exactly one point is shown.
	CloseZoom = 15.0
	// WideZoom is used when several points are shown.
	WideZoom = 12.0
	// LabelOffsetY places the name label above the marker pin, in pixels.
	LabelOffsetY = -35
)

// DefaultCenter is where a map opens when there is no point to center on.
var DefaultCenter = LngLat{Lng: 116.397428, Lat: 39.90923}

// ErrNoCredential is returned by loaders when no API key is configured.
var ErrNoCredential = errors.New("map api key not configured")

// LngLat is a position in degrees.
type LngLat struct {
	Lng float64
	Lat float64
}

// Point is a named position to render.
type Point struct {
	Lng  float64
	Lat  float64
	Name string
}

// MapOptions configures a new map.
type MapOptions struct {
	Center LngLat
	Zoom   float64
}

// LabelStyle describes how a text label is drawn relative to its position.
type LabelStyle struct {
	OffsetX int
	OffsetY int
	Class   string
}

// Overlay is anything drawn on the map that can be removed.
type Overlay interface {
	Remove()
}

// Marker is a clickable point overlay.
type Marker interface {
	Overlay
	// OnClick subscribes to activation. The SDK reports the marker position as it holds it.
	OnClick(fn func(pos LngLat))
}

// Map is a map instance bound to a display container.
type Map interface {
	AddMarker(pos LngLat, title string) Marker
	AddLabel(pos LngLat, text string, style LabelStyle) Overlay
	SetCenter(pos LngLat)
	SetZoom(level float64)
	Resize()
}

// SDK creates maps once the provider runtime is available.
type SDK interface {
	NewMap(container string, opts MapOptions) (Map, error)
}

// Loader acquires the provider runtime. Acquisition may be slow and may fail.
type Loader interface {
	Load(ctx context.Context, apiKey string) (SDK, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, apiKey string) (SDK, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, apiKey string) (SDK, error) {
	return f(ctx, apiKey)
}
