package selection

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/mapview"
	"github.com/tripmap/tripmap/internal/poi"
)

type recordingMap struct {
	calls    [][]mapview.Point
	callback func(mapview.Point)
}

func (m *recordingMap) SetMarkers(points []mapview.Point) {
	m.calls = append(m.calls, points)
}

func (m *recordingMap) OnMarkerActivated(fn func(mapview.Point)) {
	m.callback = fn
}

func (m *recordingMap) last() []mapview.Point {
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func num(v float64) itinerary.Number {
	return itinerary.NewNumber(v)
}

// twoDayTrip has three geocoded activities on day 0 and nothing geocoded on day 1.
func twoDayTrip() *itinerary.Document {
	return &itinerary.Document{
		Title: "Tokyo weekend",
		Days: []itinerary.Day{
			{
				City: "Tokyo",
				Activities: []itinerary.Activity{
					{Name: "Meiji Shrine", Lat: num(35.6764), Lng: num(139.6993)},
					{Name: "Tokyo Tower", Lat: num(35.67622), Lng: num(139.65035)},
					{Name: "Senso-ji", Lat: num(35.7148), Lng: num(139.7967)},
				},
			},
			{
				City:       "Tokyo",
				Activities: []itinerary.Activity{{Name: "Free day"}},
			},
		},
	}
}

func newTestCoordinator() (*Coordinator, *recordingMap) {
	m := &recordingMap{}
	return NewCoordinator(Config{Map: m, Logger: zerolog.Nop()}), m
}

func TestCoordinator_StartsWithNoItinerary(t *testing.T) {
	c, m := newTestCoordinator()

	s := c.State()
	assert.Equal(t, NoItinerary, s.Phase)
	assert.False(t, s.HasActive())
	assert.Equal(t, 0, c.DayCount())
	assert.NotNil(t, m.callback, "subscribes to marker activation")
}

func TestCoordinator_ScenarioA_LoadSelectsFirstDayAndPoint(t *testing.T) {
	c, m := newTestCoordinator()

	c.Load(twoDayTrip())

	s := c.State()
	assert.Equal(t, DaySelected, s.Phase)
	assert.Equal(t, 0, s.DayIndex)
	require.True(t, s.HasActive())
	assert.Equal(t, "Meiji Shrine", s.Active.Name)
	assert.Equal(t, 0, s.ActiveIndex)

	assert.Equal(t, 2, c.DayCount())
	assert.Equal(t, []int{3, 0}, c.PointCounts())
	require.Len(t, m.last(), 3)
	assert.Equal(t, "Meiji Shrine", m.last()[0].Name)
}

func TestCoordinator_ScenarioB_SwitchToEmptyDay(t *testing.T) {
	c, m := newTestCoordinator()
	c.Load(twoDayTrip())

	require.True(t, c.SelectDay(1))

	s := c.State()
	assert.Equal(t, DaySelected, s.Phase)
	assert.Equal(t, 1, s.DayIndex)
	assert.False(t, s.HasActive())
	assert.Equal(t, -1, s.ActiveIndex)
	assert.Empty(t, m.last())
	assert.Empty(t, c.Points())
}

func TestCoordinator_ScenarioC_MapActivationWithinTolerance(t *testing.T) {
	c, m := newTestCoordinator()
	c.Load(twoDayTrip())

	m.callback(mapview.Point{Lng: 139.6503, Lat: 35.6762, Name: "Tokyo Tower"})

	s := c.State()
	require.True(t, s.HasActive())
	assert.Equal(t, "Tokyo Tower", s.Active.Name)
	assert.Equal(t, 139.65035, s.Active.Lng)
	assert.Equal(t, 35.67622, s.Active.Lat)
	assert.Equal(t, 1, s.ActiveIndex)
}

func TestCoordinator_ScenarioD_MapActivationMiss(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Load(twoDayTrip())
	require.True(t, c.ActivateFromList(2))
	before := c.State()

	assert.False(t, c.ActivateFromMap(2.3522, 48.8566, "Louvre"))

	assert.Equal(t, before, c.State())
}

func TestCoordinator_OnMapResolvedReportsOutcome(t *testing.T) {
	c, m := newTestCoordinator()
	var outcomes []bool
	c.OnMapResolved(func(matched bool) { outcomes = append(outcomes, matched) })

	c.ActivateFromMap(139.6503, 35.6762, "before load")
	c.Load(twoDayTrip())
	m.callback(mapview.Point{Lng: 139.6503, Lat: 35.6762, Name: "Tokyo Tower"})
	m.callback(mapview.Point{Lng: 2.3522, Lat: 48.8566, Name: "Louvre"})
	c.ActivateFromMap(139.7967, 35.7148, "Senso-ji")
	require.True(t, c.ActivateFromList(0))

	assert.Equal(t, []bool{false, true, false, true}, outcomes)
}

func TestCoordinator_ScenarioE_ClearThenReload(t *testing.T) {
	c, m := newTestCoordinator()
	c.Load(twoDayTrip())
	require.True(t, c.SelectDay(1))

	c.Clear()

	s := c.State()
	assert.Equal(t, NoItinerary, s.Phase)
	assert.False(t, s.HasActive())
	assert.Nil(t, c.Document())
	assert.Empty(t, m.last())

	c.Load(twoDayTrip())
	assert.Equal(t, 0, c.State().DayIndex)
	assert.Equal(t, "Meiji Shrine", c.State().Active.Name)
}

func TestCoordinator_DaySwitchResetsActivePoint(t *testing.T) {
	doc := twoDayTrip()
	doc.Days[1].Activities = []itinerary.Activity{
		{Name: "Shibuya", Lat: num(35.6595), Lng: num(139.7005)},
		{Name: "Ueno", Lat: num(35.7156), Lng: num(139.7745)},
	}
	c, _ := newTestCoordinator()
	c.Load(doc)
	require.True(t, c.ActivateFromList(2))

	require.True(t, c.SelectDay(1))
	assert.Equal(t, "Shibuya", c.State().Active.Name)

	require.True(t, c.ActivateFromList(1))
	require.True(t, c.SelectDay(0))
	assert.Equal(t, "Meiji Shrine", c.State().Active.Name, "no per-day memory")

	require.True(t, c.SelectDay(1))
	assert.Equal(t, "Shibuya", c.State().Active.Name)
}

func TestCoordinator_MapActivationOnlyMatchesCurrentDay(t *testing.T) {
	doc := twoDayTrip()
	doc.Days[1].Activities = []itinerary.Activity{{Name: "Shibuya", Lat: num(35.6595), Lng: num(139.7005)}}
	c, _ := newTestCoordinator()
	c.Load(doc)

	assert.False(t, c.ActivateFromMap(139.7005, 35.6595, "Shibuya"))
	assert.Equal(t, "Meiji Shrine", c.State().Active.Name)
}

func TestCoordinator_SelectDayRejected(t *testing.T) {
	c, m := newTestCoordinator()

	assert.False(t, c.SelectDay(0), "no itinerary loaded")

	c.Load(twoDayTrip())
	calls := len(m.calls)
	before := c.State()

	assert.False(t, c.SelectDay(2))
	assert.False(t, c.SelectDay(-1))
	assert.Equal(t, before, c.State())
	assert.Len(t, m.calls, calls)
}

func TestCoordinator_ActivateFromListBounds(t *testing.T) {
	c, _ := newTestCoordinator()
	assert.False(t, c.ActivateFromList(0))

	c.Load(twoDayTrip())
	assert.False(t, c.ActivateFromList(3))
	assert.False(t, c.ActivateFromList(-1))
	assert.True(t, c.ActivateFromList(1))
	assert.Equal(t, "Tokyo Tower", c.State().Active.Name)
}

func TestCoordinator_ActivationWithoutItinerary(t *testing.T) {
	c, _ := newTestCoordinator()
	assert.False(t, c.ActivateFromMap(139.6503, 35.6762, "x"))
	assert.Equal(t, NoItinerary, c.State().Phase)
}

func TestCoordinator_DaylessDocument(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Load(&itinerary.Document{Title: "empty"})
	assert.Equal(t, NoItinerary, c.State().Phase)
	assert.NotNil(t, c.Document())

	c.Load(nil)
	assert.Equal(t, NoItinerary, c.State().Phase)
}

func TestCoordinator_ActiveAlwaysInCurrentDay(t *testing.T) {
	doc := twoDayTrip()
	doc.Days[1].Activities = []itinerary.Activity{{Name: "Shibuya", Lat: num(35.6595), Lng: num(139.7005)}}
	c, m := newTestCoordinator()

	var seen []State
	c.OnChange(func(s State) { seen = append(seen, s) })

	c.Load(doc)
	c.ActivateFromList(2)
	c.SelectDay(1)
	m.callback(mapview.Point{Lng: 139.70051, Lat: 35.65951})
	c.SelectDay(0)
	c.Clear()

	require.Len(t, seen, 6)
	for _, s := range seen {
		if !s.HasActive() {
			continue
		}
		assert.Equal(t, s.DayIndex, s.Active.DayIndex)
		assert.Contains(t, pointsOf(doc, s.DayIndex), *s.Active)
	}
}

func TestCoordinator_StateIsACopy(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Load(twoDayTrip())

	s := c.State()
	s.Active.Name = "mutated"

	assert.Equal(t, "Meiji Shrine", c.State().Active.Name)
}

func TestCoordinator_NavigationTarget(t *testing.T) {
	c, _ := newTestCoordinator()
	_, ok := c.NavigationTarget()
	assert.False(t, ok)

	c.Load(twoDayTrip())
	p, ok := c.NavigationTarget()
	require.True(t, ok)
	assert.Equal(t, "Meiji Shrine", p.Name)

	c.ActivateFromList(2)
	p, _ = c.NavigationTarget()
	assert.Equal(t, "Senso-ji", p.Name)

	c.SelectDay(1)
	_, ok = c.NavigationTarget()
	assert.False(t, ok)
}

func TestCoordinator_WithoutMap(t *testing.T) {
	c := NewCoordinator(Config{Logger: zerolog.Nop()})
	c.Load(twoDayTrip())
	assert.True(t, c.SelectDay(1))
	assert.True(t, c.SelectDay(0))
	assert.True(t, c.ActivateFromMap(139.6993, 35.6764, ""))
}

func TestCoordinator_CustomTolerance(t *testing.T) {
	c := NewCoordinator(Config{Tolerance: 1e-2, Logger: zerolog.Nop()})
	c.Load(twoDayTrip())

	assert.True(t, c.ActivateFromMap(139.705, 35.68, ""))
	assert.Equal(t, "Meiji Shrine", c.State().Active.Name)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "no_itinerary", NoItinerary.String())
	assert.Equal(t, "day_selected", DaySelected.String())
}

func pointsOf(doc *itinerary.Document, day int) []poi.GeoPoint {
	return poi.Extract(doc).Day(day)
}
