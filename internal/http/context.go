package httpx

import (
	"context"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

// Unexported context key types avoid collisions across packages.
type (
	clientIDKey struct{}
	sessionKey  struct{}
)

// WithClientID returns a child context carrying the browser client id.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the browser client id set by ClientSession, or "".
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}

// WithSession returns a child context carrying the session resolved by Guard.
func WithSession(ctx context.Context, sess domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session resolved by Guard and whether one was set.
func SessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return sess, ok
}
