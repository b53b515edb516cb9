package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hemam-center/hemam/internal/platform/httpx"
)

type userContextKey struct{}

// ContextWithUser stores the authorized user in context for downstream
// handlers.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authorized user placed by the middleware.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// Middleware wires guard decisions into chi handler chains, translating
// decisions to the protocol contract: 401 for unresolved identity, 403 for
// role/permission mismatches. The decision's error kind travels in the
// problem body as a machine-readable code.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger

	// Denied, when set, observes every rejection with its error code.
	Denied func(code string)
}

// RequireAuth admits any active authenticated user, or only the listed roles
// when given.
func (m Middleware) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	decide := m.Guard.RequireAuth(allowedRoles...)
	return m.wrap(decide)
}

// RequirePermission admits active users whose permission set reaches the
// (resource, action) pair.
func (m Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	decide := m.Guard.RequirePermission(resource, action)
	return m.wrap(decide)
}

func (m Middleware) wrap(decide func(*http.Request) AuthDecision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := decide(r)
			if !decision.Authorized() {
				kind := decision.Error()
				if m.Logger != nil {
					m.Logger.Warn("authorization denied",
						slog.String("path", r.URL.Path),
						slog.String("code", string(kind)))
				}
				if m.Denied != nil {
					m.Denied(string(kind))
				}
				status := kind.HTTPStatus()
				httpx.ProblemCode(w, status, http.StatusText(status), "", string(kind))
				return
			}
			ctx := ContextWithUser(r.Context(), decision.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
