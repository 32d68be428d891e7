package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
// History lives for the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Turn
	maxTurns int
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithMaxTurns keeps only the most recent n turns of each session.
// Zero or less means unbounded.
func WithMaxTurns(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string][]domain.Turn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendTurns adds turns to the end of a session under one lock, then
// trims the session to the turn limit.
func (s *SessionStore) AppendTurns(_ context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns = append(s.sessions[sessionID], turns...)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		trimmed := make([]domain.Turn, s.maxTurns)
		copy(trimmed, turns[len(turns)-s.maxTurns:])
		turns = trimmed
	}
	s.sessions[sessionID] = turns
	return nil
}

// Get returns a copy of a session's turns, oldest first.
func (s *SessionStore) Get(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear removes a session.
func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of sessions held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
