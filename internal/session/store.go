package session

import (
	"sync"
	"time"
)

// DefaultID is the session used by clients that never present a session token.
const DefaultID = "default"

// Store owns one Context per session id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Context
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Context)}
}

// Get returns the context for id, creating an empty one on first use. An empty id
// maps to DefaultID.
func (s *Store) Get(id string) *Context {
	if id == "" {
		id = DefaultID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[id]
	if !ok {
		c = NewContext()
		c.id = id
		s.sessions[id] = c
	}
	c.touch(time.Now())
	return c
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops sessions neither used nor updated within maxIdle and returns how many were dropped.
// The default session is never pruned.
func (s *Store) Prune(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.sessions {
		if id == DefaultID {
			continue
		}
		if c.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
