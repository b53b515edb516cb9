package auth

import (
	"context"
	"net/http"

	"github.com/hemam-center/hemam/internal/shared"
)

// SessionResolver adapts the Redis session store to the guard's identity
// port. Every failure mode collapses to "not authenticated": a broken or
// unreachable session store must never widen access.
type SessionResolver struct {
	sessions *shared.SessionManager
}

// NewSessionResolver wraps a session manager.
func NewSessionResolver(sessions *shared.SessionManager) *SessionResolver {
	return &SessionResolver{sessions: sessions}
}

// Resolve extracts the user id bound to the request's session. It prefers the
// session already loaded by the middleware and falls back to loading from the
// cookie directly.
func (sr *SessionResolver) Resolve(ctx context.Context, r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		loaded, err := sr.sessions.Load(ctx, r)
		if err != nil {
			return "", false
		}
		sess = loaded
	}
	id := sess.User()
	if id == "" {
		return "", false
	}
	return id, true
}
