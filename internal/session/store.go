// Package session owns the process-wide table of conversation sessions.
// The raw table is never exposed: callers go through Get, which hands out
// a *domain.Session carrying its own lock for per-session serialization.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tlxsante/assistant/internal/domain"
)

// Store is an in-memory session table keyed by session id. Sessions live
// for the process lifetime; there is no eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// Get returns the session for id, creating a fresh idle one for an unseen
// id. An empty id gets a generated one; Get never fails.
func (s *Store) Get(id string) *domain.Session {
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = domain.NewSession(id)
	s.sessions[id] = sess
	return sess
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
