package service

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks serializes mutating operations per session id. Different
// sessions proceed in parallel; the same session's start, answer, heartbeat,
// violation and finalize calls are mutually exclusive. Entries are
// refcounted so the map does not grow with dead sessions.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the per-session mutex and returns its release function.
func (l *sessionLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
