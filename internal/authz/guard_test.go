package authz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hemam-center/hemam/internal/authz"
	_ "github.com/hemam-center/hemam/testing"
)

type stubSessions struct {
	userID string
	ok     bool
}

func (s stubSessions) Resolve(ctx context.Context, r *http.Request) (string, bool) {
	return s.userID, s.ok
}

type stubDirectory struct {
	users map[string]*authz.User
	err   error
}

func (d stubDirectory) Get(ctx context.Context, userID string) (*authz.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users[userID], nil
}

func activeUser(id, role string, grants ...string) *authz.User {
	return &authz.User{ID: id, Email: id + "@test.local", Role: role, Status: authz.StatusActive, ExtraGrants: grants}
}

func newGuard(sessions authz.SessionStore, directory authz.UserDirectory) *authz.Guard {
	return authz.NewGuard(sessions, directory, authz.NewManager(authz.DefaultCatalog()), nil)
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	g := newGuard(stubSessions{}, stubDirectory{})
	result := g.Authorize(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if result.OK() {
		t.Fatalf("unresolved identity must not authorize")
	}
	if result.Err != authz.ErrorUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", result.Err)
	}
}

func TestAuthorizeUserNotFound(t *testing.T) {
	g := newGuard(stubSessions{userID: "ghost", ok: true}, stubDirectory{users: map[string]*authz.User{}})
	result := g.Authorize(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if result.Err != authz.ErrorUserNotFound {
		t.Fatalf("expected user_not_found, got %s", result.Err)
	}
	if result.Err.HTTPStatus() != http.StatusUnauthorized {
		t.Fatalf("user_not_found maps to 401, got %d", result.Err.HTTPStatus())
	}
}

func TestAuthorizeInactiveUser(t *testing.T) {
	for _, status := range []authz.Status{authz.StatusInactive, authz.StatusSuspended, authz.StatusPending} {
		user := activeUser("u1", authz.RoleAdmin)
		user.Status = status
		g := newGuard(stubSessions{userID: "u1", ok: true}, stubDirectory{users: map[string]*authz.User{"u1": user}})
		result := g.Authorize(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
		if result.Err != authz.ErrorUserNotActive {
			t.Fatalf("status %s: expected user_not_active, got %s", status, result.Err)
		}
		if result.Err.HTTPStatus() != http.StatusForbidden {
			t.Fatalf("user_not_active maps to 403, got %d", result.Err.HTTPStatus())
		}
	}
}

func TestAuthorizeDirectoryErrorFailsClosed(t *testing.T) {
	g := newGuard(stubSessions{userID: "u1", ok: true}, stubDirectory{err: errors.New("db down")})
	result := g.Authorize(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if result.OK() {
		t.Fatalf("infrastructure failure must not authorize")
	}
	if result.Err != authz.ErrorUnauthenticated {
		t.Fatalf("expected unauthenticated on directory failure, got %s", result.Err)
	}
}

func TestRequireAuthRoleGating(t *testing.T) {
	doctor := activeUser("d1", authz.RoleDoctor)
	g := newGuard(stubSessions{userID: "d1", ok: true}, stubDirectory{users: map[string]*authz.User{"d1": doctor}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if d := g.RequireAuth()(req); !d.Authorized() {
		t.Fatalf("active user must pass an unrestricted gate: %s", d.Error())
	}
	if d := g.RequireAuth(authz.RoleDoctor, authz.RoleNurse)(req); !d.Authorized() {
		t.Fatalf("listed role must pass: %s", d.Error())
	}
	d := g.RequireAuth(authz.RoleAdmin)(req)
	if d.Authorized() {
		t.Fatalf("unlisted role must not pass")
	}
	if d.Error() != authz.ErrorRoleNotAllowed {
		t.Fatalf("expected role_not_allowed, got %s", d.Error())
	}
	if d.User() != nil {
		t.Fatalf("denied decision must carry no user")
	}
}

func TestRequireAuthNoRoleHierarchy(t *testing.T) {
	admin := activeUser("a1", authz.RoleAdmin)
	g := newGuard(stubSessions{userID: "a1", ok: true}, stubDirectory{users: map[string]*authz.User{"a1": admin}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if d := g.RequireAuth(authz.RoleSupervisor)(req); d.Authorized() {
		t.Fatalf("admin must not satisfy a supervisor-only gate by level")
	}
}

func TestRequirePermission(t *testing.T) {
	nurse := activeUser("n1", authz.RoleNurse)
	g := newGuard(stubSessions{userID: "n1", ok: true}, stubDirectory{users: map[string]*authz.User{"n1": nurse}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if d := g.RequirePermission("patients", "view")(req); !d.Authorized() {
		t.Fatalf("nurse should view patients: %s", d.Error())
	}
	d := g.RequirePermission("users", "delete")(req)
	if d.Authorized() {
		t.Fatalf("nurse must not delete users")
	}
	if d.Error() != authz.ErrorInsufficientPermission {
		t.Fatalf("expected insufficient_permission, got %s", d.Error())
	}
}

func TestRequirePermissionWithExtraGrant(t *testing.T) {
	staff := activeUser("s1", authz.RoleStaff, authz.PermReportsExport)
	g := newGuard(stubSessions{userID: "s1", ok: true}, stubDirectory{users: map[string]*authz.User{"s1": staff}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if d := g.RequirePermission("reports", "export")(req); !d.Authorized() {
		t.Fatalf("extra grant should unlock export: %s", d.Error())
	}
}

func TestRequirePermissionSuspendedAdmin(t *testing.T) {
	admin := activeUser("a1", authz.RoleAdmin)
	admin.Status = authz.StatusSuspended
	g := newGuard(stubSessions{userID: "a1", ok: true}, stubDirectory{users: map[string]*authz.User{"a1": admin}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	d := g.RequirePermission("users", "view")(req)
	if d.Authorized() {
		t.Fatalf("suspended admin must be rejected before permission checks")
	}
	if d.Error() != authz.ErrorUserNotActive {
		t.Fatalf("status check precedes permissions, got %s", d.Error())
	}
}

func TestDecisionDeterminism(t *testing.T) {
	doctor := activeUser("d1", authz.RoleDoctor)
	g := newGuard(stubSessions{userID: "d1", ok: true}, stubDirectory{users: map[string]*authz.User{"d1": doctor}})
	decide := g.RequirePermission("medical_records", "view")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	first := decide(req)
	for i := 0; i < 10; i++ {
		if d := decide(req); d.Authorized() != first.Authorized() || d.Error() != first.Error() {
			t.Fatalf("identical inputs produced different decisions on call %d", i)
		}
	}
}

func TestMiddlewareWritesProblemJSON(t *testing.T) {
	nurse := activeUser("n1", authz.RoleNurse)
	g := newGuard(stubSessions{userID: "n1", ok: true}, stubDirectory{users: map[string]*authz.User{"n1": nurse}})
	mw := authz.Middleware{Guard: g}

	protected := mw.RequirePermission("users", "delete")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run on denial")
	}))
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/api/admin/users/1", nil))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected problem JSON, got %s", ct)
	}
	if body := res.Body.String(); !strings.Contains(body, "insufficient_permission") {
		t.Fatalf("problem body missing error code: %s", body)
	}
}

func TestMiddlewareInjectsUser(t *testing.T) {
	doctor := activeUser("d1", authz.RoleDoctor)
	g := newGuard(stubSessions{userID: "d1", ok: true}, stubDirectory{users: map[string]*authz.User{"d1": doctor}})
	mw := authz.Middleware{Guard: g}

	var got *authz.User
	protected := mw.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = authz.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if got == nil || got.ID != "d1" {
		t.Fatalf("authorized user not injected into context")
	}
}

func TestMiddlewareUnauthenticated(t *testing.T) {
	g := newGuard(stubSessions{}, stubDirectory{})
	mw := authz.Middleware{Guard: g}

	protected := mw.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run for anonymous request")
	}))
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}
