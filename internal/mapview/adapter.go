package mapview

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog"
)

type loadState int

const (
	stateIdle loadState = iota
	stateLoading
	stateReady
	stateUnavailable
)

// Config holds configuration for an Adapter.
type Config struct {
	// Loader acquires the map SDK. A nil loader leaves the adapter unavailable.
	Loader Loader

	// APIKey is the map provider credential. Empty leaves the adapter unavailable.
	APIKey string

	// LoadTimeout bounds SDK acquisition (default: 15 seconds).
	LoadTimeout time.Duration

	// Logger for adapter operations.
	Logger zerolog.Logger
}

// Adapter owns one map instance and the markers and labels drawn on it.
//
// SDK acquisition runs in the background. Marker sets supplied before the map exists are
// kept (latest wins) and applied once it does. When the SDK cannot be loaded the adapter
// silently does nothing.
type Adapter struct {
	loader      Loader
	apiKey      string
	loadTimeout time.Duration
	logger      zerolog.Logger

	mu         sync.Mutex
	state      loadState
	container  string
	m          Map
	pending    []Point
	hasPending bool
	markers    []Marker
	labels     []Overlay
	onActivate func(Point)

	ready     chan struct{}
	readyOnce sync.Once
}

// NewAdapter creates a new map adapter.
func NewAdapter(cfg Config) *Adapter {
	timeout := cfg.LoadTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Adapter{
		loader:      cfg.Loader,
		apiKey:      cfg.APIKey,
		loadTimeout: timeout,
		logger:      cfg.Logger,
		ready:       make(chan struct{}),
	}
}

// Initialize binds the adapter to a container and starts SDK acquisition.
// Calling it again reuses the existing map.
func (a *Adapter) Initialize(container string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateIdle {
		return
	}
	a.container = container

	if a.loader == nil || a.apiKey == "" {
		a.state = stateUnavailable
		a.logger.Warn().
			Str("container", container).
			Msg("map api key not configured, map disabled")
		a.markReady()
		return
	}

	a.state = stateLoading
	go a.acquire(container)
}

func (a *Adapter) acquire(container string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.loadTimeout)
	defer cancel()

	sdk, err := a.loader.Load(ctx, a.apiKey)
	var m Map
	if err == nil {
		a.mu.Lock()
		opts := MapOptions{Center: DefaultCenter, Zoom: InitialZoom}
		if a.hasPending && len(a.pending) > 0 {
			opts.Center = LngLat{Lng: a.pending[0].Lng, Lat: a.pending[0].Lat}
		}
		a.mu.Unlock()
		m, err = sdk.NewMap(container, opts)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.markReady()

	if err != nil {
		a.state = stateUnavailable
		a.pending, a.hasPending = nil, false
		a.logger.Warn().Err(err).
			Str("container", container).
			Msg("map sdk unavailable, map disabled")
		return
	}

	a.m = m
	a.state = stateReady
	a.logger.Debug().Str("container", container).Msg("map sdk loaded")

	if a.hasPending {
		points := a.pending
		a.pending, a.hasPending = nil, false
		a.render(points)
	}
}

func (a *Adapter) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

// Ready is closed once SDK acquisition has finished, successfully or not.
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}

// Available reports whether a map is live.
func (a *Adapter) Available() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateReady
}

// SetMarkers replaces the drawn markers and labels with one pair per point and recenters
// on the points. Calls are applied in arrival order; the last one wins.
func (a *Adapter) SetMarkers(points []Point) {
	cpy := make([]Point, len(points))
	copy(cpy, points)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateIdle, stateLoading:
		a.pending, a.hasPending = cpy, true
	case stateReady:
		a.render(cpy)
	case stateUnavailable:
	}
}

// render must be called with a.mu held.
func (a *Adapter) render(points []Point) {
	a.clear()

	if len(points) == 0 {
		return
	}

	a.m.SetCenter(boundsCenter(points))
	if len(points) == 1 {
		a.m.SetZoom(CloseZoom)
	} else {
		a.m.SetZoom(WideZoom)
	}

	for _, p := range points {
		pos := LngLat{Lng: p.Lng, Lat: p.Lat}
		name := p.Name

		mk := a.m.AddMarker(pos, name)
		mk.OnClick(func(reported LngLat) {
			a.dispatch(Point{Lng: reported.Lng, Lat: reported.Lat, Name: name})
		})
		a.markers = append(a.markers, mk)

		if name != "" {
			label := a.m.AddLabel(pos, name, LabelStyle{OffsetY: LabelOffsetY, Class: "poi-label"})
			a.labels = append(a.labels, label)
		}
	}
}

// clear must be called with a.mu held.
func (a *Adapter) clear() {
	for _, mk := range a.markers {
		mk.Remove()
	}
	for _, l := range a.labels {
		l.Remove()
	}
	a.markers = nil
	a.labels = nil
}

func (a *Adapter) dispatch(p Point) {
	a.mu.Lock()
	fn := a.onActivate
	a.mu.Unlock()

	if fn == nil {
		a.logger.Debug().
			Str("name", p.Name).
			Msg("marker activated with no callback registered")
		return
	}
	fn(p)
}

// OnMarkerActivated registers the activation callback, replacing any previous one.
func (a *Adapter) OnMarkerActivated(fn func(Point)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onActivate = fn
}

// Resize forwards a container resize to the map.
func (a *Adapter) Resize() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateReady {
		a.m.Resize()
	}
}

// MarkerCount returns the number of markers currently drawn.
func (a *Adapter) MarkerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.markers)
}

// Teardown removes every drawn marker and label and drops queued markers.
// It is safe to call repeatedly and before Initialize.
func (a *Adapter) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clear()
	a.pending, a.hasPending = nil, false
}

// boundsCenter returns the midpoint of the bounding box of points.
func boundsCenter(points []Point) LngLat {
	pts := make([]r2.Point, len(points))
	for i, p := range points {
		pts[i] = r2.Point{X: p.Lng, Y: p.Lat}
	}
	c := r2.RectFromPoints(pts...).Center()
	return LngLat{Lng: c.X, Lat: c.Y}
}
