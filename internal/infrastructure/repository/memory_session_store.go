package repository

import (
	"context"
	"sync"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"
)

// MemorySessionStore implements SessionStore with an in-process map.
// Suitable for development and single-process deployments only: sessions
// are lost on restart and every shop must re-authenticate. Horizontal
// scaling requires a shared backend (see RedisSessionStore).
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// Load returns the session for id, or domain.ErrSessionNotFound.
func (s *MemorySessionStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// Copy out so callers cannot mutate stored state.
	out := sess
	return &out, nil
}

// Store upserts a session keyed by its ID.
func (s *MemorySessionStore) Store(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// Delete removes a session; deleting a missing id is a no-op.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteByShop removes every session belonging to shop.
func (s *MemorySessionStore) DeleteByShop(ctx context.Context, shop string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, sess := range s.sessions {
		if sess.Shop == shop {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)
