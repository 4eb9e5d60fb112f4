package handlers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-saver/internal/app"
)

// Session defaults.
const (
	DefaultSessionCookie = "qs_session"
	DefaultSessionTTL    = 30 * time.Minute
	DefaultMaxSessions   = 1024
)

// ErrSessionsClosed is reported by the readiness check once the store is
// shut down.
var ErrSessionsClosed = errors.New("session store closed")

// ViewFactory builds the view of a new session.
type ViewFactory func() *app.QuoteListView

// SessionStoreConfig configures a SessionStore.
type SessionStoreConfig struct {
	// NewView is called once per session. Required.
	NewView ViewFactory

	// TTL is how long an idle session is kept.
	TTL time.Duration

	// MaxSessions caps the number of live sessions. The least recently used
	// session is closed to make room.
	MaxSessions int

	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

type session struct {
	view     *app.QuoteListView
	lastSeen time.Time
}

// SessionStore owns one QuoteListView per browser session.
type SessionStore struct {
	newView     ViewFactory
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewSessionStore creates an empty store.
// Panics if cfg.NewView is nil.
func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	if cfg.NewView == nil {
		panic("SessionStore: NewView is required")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}

	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &SessionStore{
		newView:     cfg.NewView,
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		logger:      cfg.Logger.With(slog.String("component", "http.SessionStore")),
		now:         cfg.Now,
		sessions:    make(map[string]*session),
	}
}

// TTL returns the idle timeout of a session.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Get returns the live view of session id and marks it as used.
func (s *SessionStore) Get(id string) (*app.QuoteListView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl || sess.view.Closed() {
		delete(s.sessions, id)
		sess.view.Close()

		return nil, false
	}

	sess.lastSeen = now

	return sess.view, true
}

// Create starts a new session and returns its id and view.
func (s *SessionStore) Create() (string, *app.QuoteListView) {
	id := uuid.NewString()
	view := s.newView()

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		view.Close()

		return id, view
	}

	var evicted *session
	if len(s.sessions) >= s.maxSessions {
		evicted = s.evictOldestLocked()
	}

	s.sessions[id] = &session{view: view, lastSeen: s.now()}
	s.mu.Unlock()

	if evicted != nil {
		evicted.view.Close()
		s.logger.Debug("session evicted", slog.Int("max_sessions", s.maxSessions))
	}

	return id, view
}

// Remove closes and forgets session id.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.view.Close()
	}
}

func (s *SessionStore) evictOldestLocked() *session {
	var (
		oldestID string
		oldest   *session
	)

	for id, sess := range s.sessions {
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, sess
		}
	}

	if oldest != nil {
		delete(s.sessions, oldestID)
	}

	return oldest
}

// Sweep closes every session idle for longer than the TTL and returns how
// many were closed.
func (s *SessionStore) Sweep() int {
	now := s.now()

	var expired []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.view.Close()
	}

	if len(expired) > 0 {
		s.logger.Debug("expired sessions closed", slog.Int("count", len(expired)))
	}

	return len(expired)
}

// Run sweeps expired sessions until ctx is done, then closes the store.
func (s *SessionStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close closes every session. Sessions created afterwards are closed
// immediately.
func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.closed = true
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.view.Close()
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Name implements ports.HealthChecker.
func (s *SessionStore) Name() string {
	return "sessions"
}

// Check implements ports.HealthChecker. It fails once the store is closed.
func (s *SessionStore) Check(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionsClosed
	}

	return nil
}
