package authz

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Status enumerates user account states. Only active users authorize.
type Status string

// Known account statuses.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// ErrorKind classifies expected authorization outcomes. These are values, not
// exceptions: every kind below is a normal result of operating the system.
type ErrorKind string

// Authorization error kinds.
const (
	ErrorNone                   ErrorKind = ""
	ErrorUnauthenticated        ErrorKind = "unauthenticated"
	ErrorUserNotFound           ErrorKind = "user_not_found"
	ErrorUserNotActive          ErrorKind = "user_not_active"
	ErrorRoleNotAllowed         ErrorKind = "role_not_allowed"
	ErrorInsufficientPermission ErrorKind = "insufficient_permission"
	ErrorRateLimited            ErrorKind = "rate_limited"
)

// HTTPStatus maps an error kind to the externally visible status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorNone:
		return http.StatusOK
	case ErrorUnauthenticated, ErrorUserNotFound:
		return http.StatusUnauthorized
	case ErrorRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}

// User is the directory snapshot an authorization decision is evaluated
// against. ExtraGrants are validated against the catalog before they reach
// the guard.
type User struct {
	ID          string
	Email       string
	Name        string
	Role        string
	Status      Status
	ExtraGrants []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthResult is the outcome of identity resolution plus directory lookup.
type AuthResult struct {
	User *User
	Err  ErrorKind
}

// OK reports whether a known, active user was resolved.
func (r AuthResult) OK() bool {
	return r.Err == ErrorNone && r.User != nil
}

// AuthDecision is the terminal output of a configured guard. Fields are
// unexported so that authorized implies a user and no error by construction.
type AuthDecision struct {
	authorized bool
	user       *User
	err        ErrorKind
}

// Granted builds an accepting decision for the given user.
func Granted(user *User) AuthDecision {
	return AuthDecision{authorized: true, user: user}
}

// Denied builds a rejecting decision carrying the error kind.
func Denied(kind ErrorKind) AuthDecision {
	return AuthDecision{err: kind}
}

// Authorized reports whether the request may proceed.
func (d AuthDecision) Authorized() bool { return d.authorized }

// User returns the resolved user, nil unless authorized.
func (d AuthDecision) User() *User { return d.user }

// Error returns the rejection kind, ErrorNone when authorized.
func (d AuthDecision) Error() ErrorKind { return d.err }

// SessionStore resolves an inbound request to a verified user identifier.
// Implementations must collapse every failure mode (missing cookie, expired
// session, store unreachable) into ok=false: identity resolution fails closed.
type SessionStore interface {
	Resolve(ctx context.Context, r *http.Request) (userID string, ok bool)
}

// UserDirectory fetches the persistent user record backing an identity.
// A missing record is (nil, nil); errors are reserved for infrastructure
// failures.
type UserDirectory interface {
	Get(ctx context.Context, userID string) (*User, error)
}

// Guard chains identity resolution, directory lookup, status, role and
// permission checks into a single deterministic decision per request. It
// holds no mutable state; the user record is fetched exactly once per call so
// every check inside one decision sees the same snapshot.
type Guard struct {
	sessions  SessionStore
	directory UserDirectory
	manager   *Manager
	logger    *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(sessions SessionStore, directory UserDirectory, manager *Manager, logger *slog.Logger) *Guard {
	return &Guard{sessions: sessions, directory: directory, manager: manager, logger: logger}
}

// Manager exposes the permission manager backing this guard.
func (g *Guard) Manager() *Manager { return g.manager }

// Authorize resolves identity and directory record and applies the status
// check. It enforces no role or permission constraints; use RequireAuth or
// RequirePermission for those. Infrastructure failures degrade to
// Unauthenticated rather than failing open.
func (g *Guard) Authorize(ctx context.Context, r *http.Request) AuthResult {
	userID, ok := g.sessions.Resolve(ctx, r)
	if !ok || userID == "" {
		return AuthResult{Err: ErrorUnauthenticated}
	}
	user, err := g.directory.Get(ctx, userID)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("authz directory lookup", slog.String("user_id", userID), slog.Any("error", err))
		}
		return AuthResult{Err: ErrorUnauthenticated}
	}
	if user == nil {
		return AuthResult{Err: ErrorUserNotFound}
	}
	if user.Status != StatusActive {
		return AuthResult{Err: ErrorUserNotActive}
	}
	return AuthResult{User: user}
}

// RequireAuth returns a configured decision function. With no allowedRoles any
// active authenticated user passes; otherwise the resolved role must be an
// exact member of the list (no hierarchy: admin does not satisfy a
// supervisor-only gate unless listed).
func (g *Guard) RequireAuth(allowedRoles ...string) func(*http.Request) AuthDecision {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[normalize(role)] = struct{}{}
	}
	return func(r *http.Request) AuthDecision {
		result := g.Authorize(r.Context(), r)
		if !result.OK() {
			return Denied(result.Err)
		}
		if len(allowed) > 0 {
			if _, ok := allowed[normalize(result.User.Role)]; !ok {
				return Denied(ErrorRoleNotAllowed)
			}
		}
		return Granted(result.User)
	}
}

// RequirePermission layers a (resource, action) check on top of RequireAuth,
// evaluated against the same user snapshot.
func (g *Guard) RequirePermission(resource, action string, allowedRoles ...string) func(*http.Request) AuthDecision {
	requireAuth := g.RequireAuth(allowedRoles...)
	return func(r *http.Request) AuthDecision {
		decision := requireAuth(r)
		if !decision.Authorized() {
			return decision
		}
		user := decision.User()
		granted := g.manager.UserPermissions(user.Role, user.ExtraGrants)
		if !g.manager.CanAccess(granted, resource, action) {
			return Denied(ErrorInsufficientPermission)
		}
		return decision
	}
}
