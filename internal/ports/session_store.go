package ports

import (
	"context"

	"shopify-app-gateway/internal/domain"
)

// SessionStore defines the interface for session persistence, polymorphic
// over backend (in-memory for development, Redis for production).
//
// Contract:
//   - Load returns domain.ErrSessionNotFound when the id is absent; callers
//     must branch on presence rather than assume existence.
//   - Store is an upsert keyed by session ID; overwrites are allowed
//     (refreshing an online session, offline overwrite on reinstall).
//   - Delete is idempotent: deleting a non-existent id is a no-op.
//   - DeleteByShop removes every session for a shop and returns the count.
type SessionStore interface {
	Load(ctx context.Context, id string) (*domain.Session, error)
	Store(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByShop(ctx context.Context, shop string) (int, error)
}
