package dialogue

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Session is the in-memory state for one session id: the live
// conversation (if any) and the context frame. A turn holds the
// session's lock from classification through state transition, so
// state is never mutated concurrently.
type Session struct {
	ID    string
	Conv  *Conversation
	Frame *Frame

	mu       sync.Mutex
	lastSeen time.Time
}

// Manager owns all live sessions. Each session is serialized by its
// own lock; different sessions proceed in parallel. Idle sessions are
// garbage-collected both lazily on access and by Sweep, so abandoned
// dialogues cannot grow memory without bound.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
}

// NewManager creates a session manager with the given idle timeout.
func NewManager(idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		sessions: map[string]*Session{},
		idle:     idle,
	}
}

// Acquire returns the session for id with its lock held. The caller
// must Release it when the turn is done. Stale state is discarded
// before the session is handed out.
func (m *Manager) Acquire(id string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = &Session{
			ID:       id,
			Frame:    NewFrame(DefaultHistorySize),
			lastSeen: time.Now(),
		}
		m.sessions[id] = s
	}
	m.mu.Unlock()

	s.mu.Lock()
	if time.Since(s.lastSeen) > m.idle {
		log.Debug().Str("session", id).Msg("discarding stale session state")
		s.Conv = nil
		s.Frame = NewFrame(DefaultHistorySize)
	}
	s.lastSeen = time.Now()
	return s
}

// Release unlocks a session acquired with Acquire.
func (m *Manager) Release(s *Session) {
	s.mu.Unlock()
}

// Sweep removes sessions idle past the timeout and returns how many
// were dropped. Sessions currently held by a turn are skipped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		stale := time.Since(s.lastSeen) > m.idle
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("swept idle sessions")
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IdleTimeout returns the configured idle bound.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idle
}
