package admin_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hemam-center/hemam/internal/admin"
	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/directory"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	_ "github.com/hemam-center/hemam/testing"
)

type adminRepo struct {
	users map[string]*authz.User
}

func (m *adminRepo) Get(ctx context.Context, id string) (*authz.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *adminRepo) FindByEmail(ctx context.Context, email string) (*authz.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *adminRepo) List(ctx context.Context) ([]authz.User, error) {
	var out []authz.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *adminRepo) Create(ctx context.Context, user authz.User, passwordHash string) (*authz.User, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, httpx.ErrDuplicate
		}
	}
	stored := user
	m.users[user.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *adminRepo) UpdateStatus(ctx context.Context, id string, status authz.Status) error {
	user, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	user.Status = status
	return nil
}

func (m *adminRepo) UpdateRole(ctx context.Context, id, role string) error {
	user, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	user.Role = role
	return nil
}

type staticSessions struct {
	userID string
}

func (s staticSessions) Resolve(ctx context.Context, r *http.Request) (string, bool) {
	return s.userID, s.userID != ""
}

func newAdminRouter(t *testing.T, repo *adminRepo) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := authz.NewManager(authz.DefaultCatalog())
	dirService := directory.NewService(repo, manager)
	guard := authz.NewGuard(staticSessions{userID: "admin-1"}, dirService, manager, nil)
	gate := authz.Middleware{Guard: guard, Logger: logger}

	h := admin.NewHandler(dirService, manager, nil, logger)
	r := chi.NewRouter()
	r.Route("/admin/users", h.UserRoutes(gate))
	return r
}

func seededRepo() *adminRepo {
	return &adminRepo{users: map[string]*authz.User{
		"admin-1": {ID: "admin-1", Email: "admin@test.local", Role: authz.RoleAdmin, Status: authz.StatusActive},
		"u-2":     {ID: "u-2", Email: "staff@test.local", Role: authz.RoleStaff, Status: authz.StatusActive},
	}}
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestGetUserNotFound(t *testing.T) {
	router := newAdminRouter(t, seededRepo())
	res := doJSON(t, router, http.MethodGet, "/admin/users/nobody", "")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestUpdateRoleUnknownRole(t *testing.T) {
	router := newAdminRouter(t, seededRepo())
	res := doJSON(t, router, http.MethodPatch, "/admin/users/u-2/role", `{"role":"emperor"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "unknown role") {
		t.Fatalf("response should name the rejection: %s", res.Body.String())
	}
}

func TestUpdateRoleMissingUser(t *testing.T) {
	router := newAdminRouter(t, seededRepo())
	res := doJSON(t, router, http.MethodPatch, "/admin/users/nobody/role", `{"role":"nurse"}`)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestUpdateStatusMissingUser(t *testing.T) {
	router := newAdminRouter(t, seededRepo())
	res := doJSON(t, router, http.MethodPatch, "/admin/users/nobody/status", `{"status":"suspended"}`)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	router := newAdminRouter(t, seededRepo())
	res := doJSON(t, router, http.MethodPost, "/admin/users",
		`{"email":"staff@test.local","name":"Another Staff","password":"supersecret","role":"staff"}`)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.Code, res.Body.String())
	}
}

func TestNonAdminCannotManageUsers(t *testing.T) {
	repo := seededRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := authz.NewManager(authz.DefaultCatalog())
	dirService := directory.NewService(repo, manager)
	guard := authz.NewGuard(staticSessions{userID: "u-2"}, dirService, manager, nil)
	gate := authz.Middleware{Guard: guard, Logger: logger}

	h := admin.NewHandler(dirService, manager, nil, logger)
	r := chi.NewRouter()
	r.Route("/admin/users", h.UserRoutes(gate))

	res := doJSON(t, r, http.MethodPatch, "/admin/users/u-2/role", `{"role":"nurse"}`)
	if res.Code != http.StatusForbidden {
		t.Fatalf("staff must not change roles, got %d: %s", res.Code, res.Body.String())
	}
}
