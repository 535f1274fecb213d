// Package session hosts interactive itinerary viewers. Each session binds one selection
// coordinator to one map adapter drawing on a server-side geojson surface, and delivers
// events to them one at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/mapview"
	"github.com/tripmap/tripmap/internal/mapview/geojson"
	"github.com/tripmap/tripmap/internal/navigation"
	"github.com/tripmap/tripmap/internal/selection"
	"github.com/tripmap/tripmap/internal/telemetry"
)

// Sentinel errors for session operations.
var (
	ErrNotFound          = errors.New("session not found")
	ErrTooManySessions   = errors.New("too many active sessions")
	ErrNoItinerary       = errors.New("no itinerary loaded")
	ErrDayOutOfRange     = errors.New("day index out of range")
	ErrIndexOutOfRange   = errors.New("point index out of range")
	ErrMarkerNotFound    = errors.New("marker not found")
	ErrMapUnavailable    = errors.New("map unavailable")
	ErrNothingToNavigate = errors.New("selected day has no points")
)

// Config holds configuration for the session manager.
type Config struct {
	// MapAPIKey is the map credential. When empty, sessions track selection without a map.
	MapAPIKey string

	// Navigation builds deep links (default: navigation.DefaultBaseURL).
	Navigation *navigation.Builder

	// IdleTTL is how long an unused session lives (default: 30 minutes).
	IdleTTL time.Duration

	// MaxSessions caps concurrently open sessions (default: 1000).
	MaxSessions int

	// CleanupInterval is how often idle sessions are swept (default: 1 minute).
	CleanupInterval time.Duration

	// MapLoadTimeout bounds map acquisition per session (default: 5 seconds).
	MapLoadTimeout time.Duration

	// Metrics records session activity. Optional.
	Metrics *telemetry.SessionMetrics

	// Logger for session operations.
	Logger zerolog.Logger
}

// Manager owns all open sessions.
type Manager struct {
	mapAPIKey       string
	nav             *navigation.Builder
	idleTTL         time.Duration
	maxSessions     int
	cleanupInterval time.Duration
	mapLoadTimeout  time.Duration
	metrics         *telemetry.SessionMetrics
	logger          zerolog.Logger
	now             func() time.Time

	mu          sync.Mutex
	sessions    map[string]*Session
	lastCleanup time.Time
}

// NewManager creates a new session manager.
func NewManager(cfg Config) *Manager {
	nav := cfg.Navigation
	if nav == nil {
		nav, _ = navigation.NewBuilder("")
	}

	idleTTL := cfg.IdleTTL
	if idleTTL == 0 {
		idleTTL = 30 * time.Minute
	}

	maxSessions := cfg.MaxSessions
	if maxSessions == 0 {
		maxSessions = 1000
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = time.Minute
	}

	mapLoadTimeout := cfg.MapLoadTimeout
	if mapLoadTimeout == 0 {
		mapLoadTimeout = 5 * time.Second
	}

	return &Manager{
		mapAPIKey:       cfg.MapAPIKey,
		nav:             nav,
		idleTTL:         idleTTL,
		maxSessions:     maxSessions,
		cleanupInterval: cleanupInterval,
		mapLoadTimeout:  mapLoadTimeout,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             time.Now,
		sessions:        make(map[string]*Session),
	}
}

// Session is one displayed itinerary.
type Session struct {
	id string

	mu       sync.Mutex
	coord    *selection.Coordinator
	adapter  *mapview.Adapter
	provider *geojson.Provider
	lastUsed time.Time
	closed   bool
}

// Create opens a session and loads doc into it. It waits for the map to become ready
// or for ctx to end, whichever comes first.
func (m *Manager) Create(ctx context.Context, doc *itinerary.Document) (*View, error) {
	m.Sweep()

	id := uuid.New().String()
	logger := m.logger.With().Str("session_id", id).Logger()

	provider := geojson.NewProvider(geojson.Config{Logger: logger})
	adapter := mapview.NewAdapter(mapview.Config{
		Loader:      provider,
		APIKey:      m.mapAPIKey,
		LoadTimeout: m.mapLoadTimeout,
		Logger:      logger,
	})
	coord := selection.NewCoordinator(selection.Config{
		Map:    adapter,
		Logger: logger,
	})
	coord.OnMapResolved(func(matched bool) {
		m.metrics.Activation("map", matched)
	})

	s := &Session{
		id:       id,
		coord:    coord,
		adapter:  adapter,
		provider: provider,
		lastUsed: m.now(),
	}

	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()
	m.metrics.SessionOpened()

	s.mu.Lock()
	adapter.Initialize("map-" + id)
	coord.Load(doc)
	s.mu.Unlock()

	select {
	case <-adapter.Ready():
	case <-ctx.Done():
	}

	m.logger.Info().
		Str("session_id", id).
		Int("days", coord.DayCount()).
		Msg("session created")

	return m.do(id, func(s *Session) error { return nil })
}

// do runs fn with the session locked and returns the resulting view.
func (m *Manager) do(id string, fn func(s *Session) error) (*View, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrNotFound
	}
	s.lastUsed = m.now()

	if err := fn(s); err != nil {
		return nil, err
	}
	return m.view(s), nil
}

// Get returns the current view of a session.
func (m *Manager) Get(id string) (*View, error) {
	return m.do(id, func(*Session) error { return nil })
}

// Load replaces the session's document.
func (m *Manager) Load(id string, doc *itinerary.Document) (*View, error) {
	return m.do(id, func(s *Session) error {
		s.coord.Load(doc)
		return nil
	})
}

// Clear drops the session's document.
func (m *Manager) Clear(id string) (*View, error) {
	return m.do(id, func(s *Session) error {
		s.coord.Clear()
		return nil
	})
}

// SelectDay switches the session to day d.
func (m *Manager) SelectDay(id string, d int) (*View, error) {
	return m.do(id, func(s *Session) error {
		if s.coord.State().Phase == selection.NoItinerary {
			return ErrNoItinerary
		}
		if !s.coord.SelectDay(d) {
			return ErrDayOutOfRange
		}
		return nil
	})
}

// ActivateMarker clicks a marker on the session's map surface.
func (m *Manager) ActivateMarker(id string, markerID int) (*View, error) {
	return m.do(id, func(s *Session) error {
		surface := s.provider.Surface()
		if surface == nil || !s.adapter.Available() {
			return ErrMapUnavailable
		}
		if !surface.Click(markerID) {
			return ErrMarkerNotFound
		}
		return nil
	})
}

// ActivateCoordinates delivers a raw map activation. A position matching no point of the
// selected day leaves the state unchanged and is not an error.
func (m *Manager) ActivateCoordinates(id string, lng, lat float64, name string) (*View, error) {
	return m.do(id, func(s *Session) error {
		s.coord.ActivateFromMap(lng, lat, name)
		return nil
	})
}

// ActivateIndex activates the point at index in the selected day's list.
func (m *Manager) ActivateIndex(id string, index int) (*View, error) {
	return m.do(id, func(s *Session) error {
		if s.coord.State().Phase == selection.NoItinerary {
			return ErrNoItinerary
		}
		ok := s.coord.ActivateFromList(index)
		m.metrics.Activation("list", ok)
		if !ok {
			return ErrIndexOutOfRange
		}
		return nil
	})
}

// Resize forwards a container resize to the session's map.
func (m *Manager) Resize(id string) (*View, error) {
	return m.do(id, func(s *Session) error {
		s.adapter.Resize()
		return nil
	})
}

// NavigationURL returns the deep link for the active point, or for the first point of the
// selected day when none is active.
func (m *Manager) NavigationURL(id string) (string, error) {
	var link string
	_, err := m.do(id, func(s *Session) error {
		p, ok := s.coord.NavigationTarget()
		if !ok {
			return ErrNothingToNavigate
		}
		link = m.nav.Link(p)
		return nil
	})
	return link, err
}

// Delete tears a session down.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	m.close(s)
	m.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

func (m *Manager) close(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.adapter.Teardown()
	s.coord.Clear()
	m.metrics.SessionClosed()
}

// Sweep tears down sessions idle for longer than the idle TTL. It does nothing when
// called again within the cleanup interval.
func (m *Manager) Sweep() {
	now := m.now()

	m.mu.Lock()
	if now.Sub(m.lastCleanup) < m.cleanupInterval {
		m.mu.Unlock()
		return
	}
	m.lastCleanup = now

	var expired []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed)
		s.mu.Unlock()
		if idle > m.idleTTL {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.close(s)
	}

	if len(expired) > 0 {
		m.logger.Debug().
			Int("expired_sessions", len(expired)).
			Msg("swept idle sessions")
	}
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.close(s)
	}
}

// Stats contains session statistics.
type Stats struct {
	Active      int
	MaxSessions int
}

// Stats returns session statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Active: len(m.sessions), MaxSessions: m.maxSessions}
}
