package domain

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "session"

// WithSession returns a context carrying the resolved session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session placed by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}
