package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/menuscan/menu-layout-service/internal/observability"
)

// Store holds the sessions of all clients
type Store struct {
	padding float64
	delay   time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store. padding is the frame padding in canvas
// pixels and delay the redraw debounce delay of every session.
func NewStore(padding float64, delay time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Store{
		padding:  padding,
		delay:    delay,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for key, creating it on first use
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[key]
	if !ok {
		s = newSession(key, st.padding, st.delay, st.logger)
		st.sessions[key] = s
		st.logger.Debug("session created", "session", key)
	}
	return s
}

// Delete closes and forgets the session. It reports whether it existed.
func (st *Store) Delete(key string) bool {
	st.mu.Lock()
	s, ok := st.sessions[key]
	delete(st.sessions, key)
	st.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were removed
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	st.mu.Lock()
	var idle []*Session
	for key, s := range st.sessions {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
			delete(st.sessions, key)
		}
	}
	st.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		st.logger.Info("idle sessions removed", "count", len(idle))
	}
	return len(idle)
}

// Close closes every session
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
