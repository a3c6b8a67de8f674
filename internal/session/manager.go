package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/coursecal/internal/catalog"
	"github.com/dukerupert/coursecal/internal/schedule"
	"github.com/dukerupert/coursecal/internal/selector"
	"github.com/dukerupert/coursecal/internal/store"
	ws "github.com/dukerupert/coursecal/internal/websocket"
)

// Session is the calendar and course selector of one browser.
type Session struct {
	Token    string
	Painter  *schedule.Painter
	Selector *selector.Selector

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager hands out sessions by token. Sessions live in memory while in use
// and are persisted to the store after every change.
type Manager struct {
	store   *store.SessionStore
	catalog *catalog.Client
	hub     *ws.Hub
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(st *store.SessionStore, cat *catalog.Client, hub *ws.Hub, logger *slog.Logger) *Manager {
	return &Manager{
		store:    st,
		catalog:  cat,
		hub:      hub,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for token, restoring it from the store or creating
// a fresh one.
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("get session: empty token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[token]; ok {
		s.touch(time.Now())
		return s, nil
	}

	snap, err := m.store.Load(token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s := m.newSession(token)
	if snap != nil {
		s.Painter.Restore(*snap)
		s.Selector.Restore(snap.Selected)
		m.logger.Debug("session restored", "entries", len(snap.Entries), "selected", len(snap.Selected))
	} else {
		s.Painter.InitCalendar()
		m.logger.Debug("session created")
	}
	s.touch(time.Now())
	m.sessions[token] = s
	return s, nil
}

func (m *Manager) newSession(token string) *Session {
	logger := m.logger.With("session", shortToken(token))
	return &Session{
		Token: token,
		Painter: schedule.NewPainter(schedule.Options{
			Sections: m.catalog,
			Sink:     hubSink{hub: m.hub, token: token},
			Logger:   logger,
		}),
		Selector: selector.New(m.catalog, logger),
	}
}

// Save persists the session's calendar and selection list.
func (m *Manager) Save(s *Session) error {
	snap := s.Painter.Snapshot()
	snap.Token = s.Token
	snap.Selected = s.Selector.Snapshot()
	if err := m.store.Save(snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Evict drops sessions idle since before from memory. Their persisted state
// is kept. It returns the number evicted.
func (m *Manager) Evict(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, s := range m.sessions {
		if s.idleSince().Before(before) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

// Cleanup evicts idle sessions and deletes stored ones older than ttl.
func (m *Manager) Cleanup(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	evicted := m.Evict(cutoff)
	deleted, err := m.store.DeleteStale(cutoff)
	if err != nil {
		m.logger.Error("session cleanup", "error", err)
		return
	}
	if evicted > 0 || deleted > 0 {
		m.logger.Info("session cleanup", "evicted", evicted, "deleted", deleted)
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Cleanup(ttl)
		case <-ctx.Done():
			return
		}
	}
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
