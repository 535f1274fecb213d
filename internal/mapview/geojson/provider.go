// Package geojson is a server-side map SDK. It keeps the map state in memory and renders it
// as a GeoJSON FeatureCollection so HTTP clients can draw it with any web map library.
package geojson

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/mapview"
	"github.com/tripmap/tripmap/pkg/polyline"
)

// Feature kinds.
const (
	KindMarker = "marker"
	KindLabel  = "label"
)

// Config holds configuration for a Provider.
type Config struct {
	Logger zerolog.Logger
}

// Provider is both the loader and the SDK. It owns at most one surface at a time.
type Provider struct {
	logger zerolog.Logger

	mu      sync.Mutex
	surface *Surface
}

var (
	_ mapview.Loader = (*Provider)(nil)
	_ mapview.SDK    = (*Provider)(nil)
	_ mapview.Map    = (*Surface)(nil)
)

// NewProvider creates a new geojson provider.
func NewProvider(cfg Config) *Provider {
	return &Provider{logger: cfg.Logger}
}

// Load returns the provider itself once a credential is present.
func (p *Provider) Load(ctx context.Context, apiKey string) (mapview.SDK, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, mapview.ErrNoCredential
	}
	return p, nil
}

// NewMap creates the surface bound to container.
func (p *Provider) NewMap(container string, opts mapview.MapOptions) (mapview.Map, error) {
	s := &Surface{
		container: container,
		center:    opts.Center,
		zoom:      opts.Zoom,
		markers:   make(map[int]*marker),
	}

	p.mu.Lock()
	p.surface = s
	p.mu.Unlock()

	p.logger.Debug().
		Str("container", container).
		Float64("zoom", opts.Zoom).
		Msg("geojson surface created")
	return s, nil
}

// Surface returns the current surface, or nil before a map was created.
func (p *Provider) Surface() *Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

// Surface holds the drawn state of one map.
type Surface struct {
	mu        sync.Mutex
	container string
	center    mapview.LngLat
	zoom      float64
	resizes   int
	nextID    int
	order     []overlay
	markers   map[int]*marker
}

type overlay interface {
	id() int
	removed() bool
}

type marker struct {
	s     *Surface
	mid   int
	pos   mapview.LngLat
	title string
	click func(mapview.LngLat)
	gone  bool
}

func (m *marker) id() int       { return m.mid }
func (m *marker) removed() bool { return m.gone }

func (m *marker) Remove() {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.gone = true
	delete(m.s.markers, m.mid)
}

func (m *marker) OnClick(fn func(pos mapview.LngLat)) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.click = fn
}

type label struct {
	s     *Surface
	lid   int
	pos   mapview.LngLat
	text  string
	style mapview.LabelStyle
	gone  bool
}

func (l *label) id() int       { return l.lid }
func (l *label) removed() bool { return l.gone }

func (l *label) Remove() {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.gone = true
}

// AddMarker draws a marker. Marker ids increase for the lifetime of the surface.
func (s *Surface) AddMarker(pos mapview.LngLat, title string) mapview.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m := &marker{s: s, mid: s.nextID, pos: pos, title: title}
	s.markers[m.mid] = m
	s.order = append(s.order, m)
	return m
}

// AddLabel draws a text label.
func (s *Surface) AddLabel(pos mapview.LngLat, text string, style mapview.LabelStyle) mapview.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	l := &label{s: s, lid: s.nextID, pos: pos, text: text, style: style}
	s.order = append(s.order, l)
	return l
}

// SetCenter moves the viewport.
func (s *Surface) SetCenter(pos mapview.LngLat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = pos
}

// SetZoom changes the zoom level.
func (s *Surface) SetZoom(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = level
}

// Resize records a container resize. Clients re-fit on the next render.
func (s *Surface) Resize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizes++
}

// Click simulates a user clicking the marker with the given id.
// It reports false when no live marker has that id.
func (s *Surface) Click(markerID int) bool {
	s.mu.Lock()
	m, ok := s.markers[markerID]
	var (
		fn  func(mapview.LngLat)
		pos mapview.LngLat
	)
	if ok {
		fn, pos = m.click, m.pos
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	if fn != nil {
		fn(pos)
	}
	return true
}

// View is the rendered state of a surface.
type View struct {
	Container      string            `json:"container"`
	Center         [2]float64        `json:"center"`
	Zoom           float64           `json:"zoom"`
	Features       FeatureCollection `json:"features"`
	Path           string            `json:"path"`
	DistanceMeters float64           `json:"distanceMeters"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON point feature.
type Feature struct {
	Type       string     `json:"type"`
	ID         int        `json:"id"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON point geometry in [lng, lat] order.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Properties carries per-feature drawing hints.
type Properties struct {
	Kind   string `json:"kind"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Offset []int  `json:"offset,omitempty"`
	Class  string `json:"class,omitempty"`
}

// Render returns the current state. Coordinates are rounded to six decimals.
// Path connects the live markers in drawing order.
func (s *Surface) Render() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compact()
	v := View{
		Container: s.container,
		Center:    [2]float64{round6(s.center.Lng), round6(s.center.Lat)},
		Zoom:      s.zoom,
		Features:  FeatureCollection{Type: "FeatureCollection", Features: []Feature{}},
	}

	var path []polyline.Coordinate
	for _, o := range s.order {
		if o.removed() {
			continue
		}
		switch x := o.(type) {
		case *marker:
			v.Features.Features = append(v.Features.Features, point(x.mid, x.pos, Properties{
				Kind:  KindMarker,
				Title: x.title,
			}))
			path = append(path, polyline.Coordinate{Lat: x.pos.Lat, Lng: x.pos.Lng})
		case *label:
			v.Features.Features = append(v.Features.Features, point(x.lid, x.pos, Properties{
				Kind:   KindLabel,
				Text:   x.text,
				Offset: []int{x.style.OffsetX, x.style.OffsetY},
				Class:  x.style.Class,
			}))
		}
	}

	v.Path = polyline.Encode(path)
	v.DistanceMeters = math.Round(polyline.Length(path))
	return v
}

// compact drops removed overlays so long-lived surfaces do not grow without bound.
func (s *Surface) compact() {
	live := s.order[:0]
	for _, o := range s.order {
		if !o.removed() {
			live = append(live, o)
		}
	}
	for i := len(live); i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = live
}

// MarkerIDs returns the ids of live markers in drawing order.
func (s *Surface) MarkerIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compact()
	ids := make([]int, 0, len(s.markers))
	for _, o := range s.order {
		if m, ok := o.(*marker); ok {
			ids = append(ids, m.mid)
		}
	}
	return ids
}

func point(id int, pos mapview.LngLat, props Properties) Feature {
	return Feature{
		Type: "Feature",
		ID:   id,
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: [2]float64{round6(pos.Lng), round6(pos.Lat)},
		},
		Properties: props,
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
