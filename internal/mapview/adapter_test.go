package mapview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOverlay struct {
	mu      sync.Mutex
	removed bool
}

func (o *fakeOverlay) Remove() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed = true
}

func (o *fakeOverlay) isRemoved() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.removed
}

type fakeMarker struct {
	fakeOverlay
	pos   LngLat
	title string
	click func(LngLat)
}

func (m *fakeMarker) OnClick(fn func(LngLat)) { m.click = fn }

type fakeLabel struct {
	fakeOverlay
	text  string
	style LabelStyle
}

type fakeMap struct {
	mu      sync.Mutex
	opts    MapOptions
	markers []*fakeMarker
	labels  []*fakeLabel
	center  LngLat
	zoom    float64
	resized int
}

func (m *fakeMap) AddMarker(pos LngLat, title string) Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk := &fakeMarker{pos: pos, title: title}
	m.markers = append(m.markers, mk)
	return mk
}

func (m *fakeMap) AddLabel(pos LngLat, text string, style LabelStyle) Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &fakeLabel{text: text, style: style}
	m.labels = append(m.labels, l)
	return l
}

func (m *fakeMap) SetCenter(pos LngLat) { m.center = pos }
func (m *fakeMap) SetZoom(level float64) { m.zoom = level }
func (m *fakeMap) Resize()              { m.resized++ }

func (m *fakeMap) live() []*fakeMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*fakeMarker
	for _, mk := range m.markers {
		if !mk.isRemoved() {
			out = append(out, mk)
		}
	}
	return out
}

func (m *fakeMap) liveLabels() []*fakeLabel {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*fakeLabel
	for _, l := range m.labels {
		if !l.isRemoved() {
			out = append(out, l)
		}
	}
	return out
}

type fakeSDK struct {
	mu       sync.Mutex
	maps     []*fakeMap
	newMapFn func(container string, opts MapOptions) error
}

func (s *fakeSDK) NewMap(container string, opts MapOptions) (Map, error) {
	if s.newMapFn != nil {
		if err := s.newMapFn(container, opts); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &fakeMap{opts: opts}
	s.maps = append(s.maps, m)
	return m, nil
}

// gatedLoader blocks until release is closed.
type gatedLoader struct {
	sdk     *fakeSDK
	err     error
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (l *gatedLoader) Load(ctx context.Context, apiKey string) (SDK, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.sdk, nil
}

func newReadyAdapter(t *testing.T) (*Adapter, *fakeMap) {
	t.Helper()
	sdk := &fakeSDK{}
	a := NewAdapter(Config{Loader: &gatedLoader{sdk: sdk}, APIKey: "key", Logger: zerolog.Nop()})
	a.Initialize("map")
	waitReady(t, a)
	require.True(t, a.Available())
	require.Len(t, sdk.maps, 1)
	return a, sdk.maps[0]
}

func waitReady(t *testing.T, a *Adapter) {
	t.Helper()
	select {
	case <-a.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("adapter never became ready")
	}
}

func TestAdapter_SetMarkers_MultiplePoints(t *testing.T) {
	a, m := newReadyAdapter(t)

	a.SetMarkers([]Point{
		{Lng: 139.0, Lat: 35.0, Name: "A"},
		{Lng: 140.0, Lat: 36.0, Name: "B"},
		{Lng: 139.5, Lat: 35.2, Name: ""},
	})

	live := m.live()
	require.Len(t, live, 3)
	assert.Equal(t, "A", live[0].title)
	assert.Len(t, m.liveLabels(), 2, "unnamed points get no label")
	assert.InDelta(t, 139.5, m.center.Lng, 1e-9)
	assert.InDelta(t, 35.5, m.center.Lat, 1e-9)
	assert.Equal(t, WideZoom, m.zoom)
	assert.Equal(t, LabelOffsetY, m.liveLabels()[0].style.OffsetY)
}

func TestAdapter_SetMarkers_SinglePoint(t *testing.T) {
	a, m := newReadyAdapter(t)

	a.SetMarkers([]Point{{Lng: 2.3522, Lat: 48.8566, Name: "Louvre"}})

	assert.Len(t, m.live(), 1)
	assert.Equal(t, LngLat{Lng: 2.3522, Lat: 48.8566}, m.center)
	assert.Equal(t, CloseZoom, m.zoom)
}

func TestAdapter_SetMarkers_ReplacesPrevious(t *testing.T) {
	a, m := newReadyAdapter(t)

	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "a"}, {Lng: 2, Lat: 2, Name: "b"}})
	a.SetMarkers([]Point{{Lng: 3, Lat: 3, Name: "c"}})

	live := m.live()
	require.Len(t, live, 1)
	assert.Equal(t, "c", live[0].title)
	assert.Len(t, m.liveLabels(), 1)
	assert.Equal(t, 1, a.MarkerCount())
}

func TestAdapter_SetMarkers_Idempotent(t *testing.T) {
	a, m := newReadyAdapter(t)
	points := []Point{{Lng: 1, Lat: 1, Name: "a"}, {Lng: 2, Lat: 2, Name: "b"}}

	a.SetMarkers(points)
	a.SetMarkers(points)

	assert.Len(t, m.live(), 2)
	assert.Len(t, m.liveLabels(), 2)
}

func TestAdapter_SetMarkers_EmptyClearsWithoutRecentering(t *testing.T) {
	a, m := newReadyAdapter(t)

	a.SetMarkers([]Point{{Lng: 10, Lat: 20, Name: "a"}})
	center, zoom := m.center, m.zoom

	a.SetMarkers(nil)

	assert.Empty(t, m.live())
	assert.Empty(t, m.liveLabels())
	assert.Equal(t, center, m.center)
	assert.Equal(t, zoom, m.zoom)
}

func TestAdapter_QueuesUntilReady_LastWins(t *testing.T) {
	sdk := &fakeSDK{}
	loader := &gatedLoader{sdk: sdk, release: make(chan struct{})}
	a := NewAdapter(Config{Loader: loader, APIKey: "key", Logger: zerolog.Nop()})

	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "before init"}})
	a.Initialize("map")
	a.SetMarkers([]Point{{Lng: 5, Lat: 6, Name: "first"}, {Lng: 7, Lat: 8, Name: "second"}})
	a.SetMarkers([]Point{{Lng: 9, Lat: 10, Name: "latest"}})

	assert.False(t, a.Available())
	close(loader.release)
	waitReady(t, a)

	require.Len(t, sdk.maps, 1)
	m := sdk.maps[0]
	assert.Equal(t, LngLat{Lng: 9, Lat: 10}, m.opts.Center)
	assert.Equal(t, InitialZoom, m.opts.Zoom)

	live := m.live()
	require.Len(t, live, 1)
	assert.Equal(t, "latest", live[0].title)
}

func TestAdapter_DefaultCenterWithoutPending(t *testing.T) {
	_, m := newReadyAdapter(t)
	assert.Equal(t, DefaultCenter, m.opts.Center)
	assert.Equal(t, InitialZoom, m.opts.Zoom)
}

func TestAdapter_InitializeTwiceReusesMap(t *testing.T) {
	sdk := &fakeSDK{}
	loader := &gatedLoader{sdk: sdk}
	a := NewAdapter(Config{Loader: loader, APIKey: "key", Logger: zerolog.Nop()})

	a.Initialize("map")
	waitReady(t, a)
	a.Initialize("map")
	a.Initialize("other")

	assert.Equal(t, 1, loader.calls)
	assert.Len(t, sdk.maps, 1)
}

func TestAdapter_NoAPIKeyIsNoop(t *testing.T) {
	loader := &gatedLoader{sdk: &fakeSDK{}}
	a := NewAdapter(Config{Loader: loader, Logger: zerolog.Nop()})

	a.Initialize("map")
	waitReady(t, a)

	assert.False(t, a.Available())
	assert.Equal(t, 0, loader.calls)

	assert.NotPanics(t, func() {
		a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "x"}})
		a.Resize()
		a.Teardown()
	})
	assert.Equal(t, 0, a.MarkerCount())
}

func TestAdapter_LoaderFailureIsNoop(t *testing.T) {
	a := NewAdapter(Config{
		Loader: &gatedLoader{err: errors.New("script blocked")},
		APIKey: "key",
		Logger: zerolog.Nop(),
	})

	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "queued"}})
	a.Initialize("map")
	waitReady(t, a)

	assert.False(t, a.Available())
	a.SetMarkers([]Point{{Lng: 2, Lat: 2, Name: "after"}})
	assert.Equal(t, 0, a.MarkerCount())
}

func TestAdapter_NewMapFailureIsNoop(t *testing.T) {
	sdk := &fakeSDK{newMapFn: func(string, MapOptions) error { return errors.New("no container") }}
	a := NewAdapter(Config{Loader: &gatedLoader{sdk: sdk}, APIKey: "key", Logger: zerolog.Nop()})

	a.Initialize("missing")
	waitReady(t, a)

	assert.False(t, a.Available())
}

func TestAdapter_LoadTimeout(t *testing.T) {
	loader := &gatedLoader{sdk: &fakeSDK{}, release: make(chan struct{})}
	a := NewAdapter(Config{Loader: loader, APIKey: "key", LoadTimeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	a.Initialize("map")
	waitReady(t, a)

	assert.False(t, a.Available())
}

func TestAdapter_MarkerActivation(t *testing.T) {
	a, m := newReadyAdapter(t)

	var got []Point
	a.OnMarkerActivated(func(p Point) { got = append(got, p) })
	a.SetMarkers([]Point{{Lng: 139.6503, Lat: 35.6762, Name: "Tokyo Tower"}})

	live := m.live()
	require.Len(t, live, 1)
	live[0].click(LngLat{Lng: 139.65031, Lat: 35.67619})

	require.Len(t, got, 1)
	assert.Equal(t, "Tokyo Tower", got[0].Name)
	assert.Equal(t, 139.65031, got[0].Lng)
	assert.Equal(t, 35.67619, got[0].Lat)
}

func TestAdapter_OnMarkerActivatedReplaces(t *testing.T) {
	a, m := newReadyAdapter(t)

	var first, second int
	a.OnMarkerActivated(func(Point) { first++ })
	a.OnMarkerActivated(func(Point) { second++ })
	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "a"}})

	m.live()[0].click(LngLat{Lng: 1, Lat: 1})

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestAdapter_ActivationWithoutCallback(t *testing.T) {
	a, m := newReadyAdapter(t)
	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "a"}})

	assert.NotPanics(t, func() {
		m.live()[0].click(LngLat{Lng: 1, Lat: 1})
	})
}

func TestAdapter_CallbackMayReenter(t *testing.T) {
	a, m := newReadyAdapter(t)

	a.OnMarkerActivated(func(p Point) {
		a.SetMarkers([]Point{p})
	})
	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "a"}, {Lng: 2, Lat: 2, Name: "b"}})

	m.live()[1].click(LngLat{Lng: 2, Lat: 2})

	live := m.live()
	require.Len(t, live, 1)
	assert.Equal(t, "b", live[0].title)
}

func TestAdapter_Teardown(t *testing.T) {
	a, m := newReadyAdapter(t)
	a.SetMarkers([]Point{{Lng: 1, Lat: 1, Name: "a"}, {Lng: 2, Lat: 2, Name: "b"}})

	a.Teardown()
	a.Teardown()

	assert.Empty(t, m.live())
	assert.Empty(t, m.liveLabels())
	assert.Equal(t, 0, a.MarkerCount())
}

func TestAdapter_TeardownBeforeInitialize(t *testing.T) {
	a := NewAdapter(Config{Logger: zerolog.Nop()})
	assert.NotPanics(t, func() {
		a.Teardown()
		a.Teardown()
	})
}

func TestAdapter_Resize(t *testing.T) {
	a, m := newReadyAdapter(t)
	a.Resize()
	a.Resize()
	assert.Equal(t, 2, m.resized)
}

func TestBoundsCenter(t *testing.T) {
	c := boundsCenter([]Point{{Lng: -10, Lat: 5}, {Lng: 30, Lat: -15}, {Lng: 0, Lat: 0}})
	assert.InDelta(t, 10.0, c.Lng, 1e-9)
	assert.InDelta(t, -5.0, c.Lat, 1e-9)
}
