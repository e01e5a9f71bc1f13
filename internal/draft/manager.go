package draft

import (
	"context"
	"sync"
	"time"
)

// sessionIdleTTL is how long an untouched session stays in memory. The
// durable snapshot outlives the eviction, so the next request restores the
// draft transparently.
const sessionIdleTTL = 30 * time.Minute

type managedSession struct {
	session  *Session
	lastUsed time.Time
}

// Manager hands out one Session per user and drops sessions nobody has
// touched past the idle TTL, flushing their pending edits first.
type Manager struct {
	mu       sync.Mutex
	store    *Store
	now      func() time.Time
	idleTTL  time.Duration
	sessions map[string]*managedSession
}

func NewManager(store *Store) *Manager {
	return &Manager{
		store:    store,
		now:      time.Now,
		idleTTL:  sessionIdleTTL,
		sessions: make(map[string]*managedSession),
	}
}

// Session returns the user's session, creating (and restoring) it on first
// use. Each call also sweeps sessions idle past the TTL.
func (m *Manager) Session(ctx context.Context, userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIdleLocked(ctx)

	if e, ok := m.sessions[userID]; ok {
		e.lastUsed = m.now()
		return e.session
	}
	s := NewSession(ctx, userID, m.store)
	m.sessions[userID] = &managedSession{session: s, lastUsed: m.now()}
	return s
}

// evictIdleLocked flushes and drops every session idle past the TTL. The
// flush also cancels the session's pending autosave timer, so an evicted
// session leaves nothing running behind it.
func (m *Manager) evictIdleLocked(ctx context.Context) {
	cutoff := m.now().Add(-m.idleTTL)
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			e.session.Flush(ctx)
			delete(m.sessions, id)
		}
	}
}
