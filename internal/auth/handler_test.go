package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/hemam-center/hemam/internal/auth"
	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/directory"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	"github.com/hemam-center/hemam/internal/ratelimit"
	"github.com/hemam-center/hemam/internal/shared"
	_ "github.com/hemam-center/hemam/testing"
)

type stubAuthRepo struct {
	creds    auth.Credentials
	found    bool
	sessions map[string]auth.SessionRecord
}

func (s *stubAuthRepo) CredentialsByEmail(ctx context.Context, email string) (auth.Credentials, error) {
	if !s.found {
		return auth.Credentials{}, httpx.ErrNotFound
	}
	return s.creds, nil
}

func (s *stubAuthRepo) TouchLastLogin(ctx context.Context, userID string) error {
	return nil
}

func (s *stubAuthRepo) CreateSession(ctx context.Context, rec auth.SessionRecord) error {
	if s.sessions == nil {
		s.sessions = make(map[string]auth.SessionRecord)
	}
	s.sessions[rec.ID] = rec
	return nil
}

func (s *stubAuthRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubDirectoryRepo struct {
	users map[string]*authz.User
}

var _ auth.RepositoryPort = (*stubAuthRepo)(nil)

func (s *stubDirectoryRepo) Get(ctx context.Context, id string) (*authz.User, error) {
	return s.users[id], nil
}

func (s *stubDirectoryRepo) FindByEmail(ctx context.Context, email string) (*authz.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (s *stubDirectoryRepo) List(ctx context.Context) ([]authz.User, error) {
	return nil, nil
}

func (s *stubDirectoryRepo) Create(ctx context.Context, user authz.User, passwordHash string) (*authz.User, error) {
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, httpx.ErrDuplicate
		}
	}
	stored := user
	stored.CreatedAt = time.Now().UTC()
	s.users[user.ID] = &stored
	return &stored, nil
}

func (s *stubDirectoryRepo) UpdateStatus(ctx context.Context, id string, status authz.Status) error {
	return nil
}

func (s *stubDirectoryRepo) UpdateRole(ctx context.Context, id, role string) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
}

func newFixture(t *testing.T, authRepo auth.RepositoryPort, dirRepo directory.RepositoryPort) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	manager := authz.NewManager(authz.DefaultCatalog())
	dirService := directory.NewService(dirRepo, manager)
	resolver := auth.NewSessionResolver(sessionManager)
	guard := authz.NewGuard(resolver, dirService, manager, nil)

	service := auth.NewService(authRepo, dirService, discardLogger())
	handler := auth.NewHandler(service, guard, sessionManager, csrfManager, nil, discardLogger())

	limits := ratelimit.NewSet(ratelimit.Config{
		LoginMax: 5, LoginWindow: 15 * time.Minute,
		RegistrationMax: 3, RegistrationWindow: time.Hour,
		UploadMax: 20, UploadWindow: 15 * time.Minute,
		APIMax: 100, APIWindow: 15 * time.Minute,
	})

	r := chi.NewRouter()
	r.Route("/auth", handler.Routes(limits))
	return fixture{router: r, sessions: sessionManager}
}

func (f fixture) do(t *testing.T, method, path, body, remoteAddr string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr

	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res, sess
}

func activeUserFixture() (*stubAuthRepo, *stubDirectoryRepo) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	authRepo := &stubAuthRepo{
		creds: auth.Credentials{UserID: "u-1", PasswordHash: string(hash), Status: authz.StatusActive},
		found: true,
	}
	dirRepo := &stubDirectoryRepo{users: map[string]*authz.User{
		"u-1": {ID: "u-1", Email: "doc@test.local", Name: "Doc", Role: authz.RoleDoctor, Status: authz.StatusActive},
	}}
	return authRepo, dirRepo
}

func TestLoginSuccessBindsSession(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	res, sess := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"doc@test.local","password":"correct horse"}`, "1.2.3.4:1000")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "u-1" {
		t.Fatalf("session not bound to user, got %q", sess.User())
	}
	if !strings.Contains(res.Body.String(), "patients:view") {
		t.Fatalf("response should list effective permissions: %s", res.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	res, sess := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"doc@test.local","password":"wrong"}`, "1.2.3.4:1000")

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("failed login must not bind a session")
	}
}

func TestLoginInactiveUserLooksLikeBadCredentials(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	authRepo.creds.Status = authz.StatusSuspended
	f := newFixture(t, authRepo, dirRepo)

	res, _ := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"doc@test.local","password":"correct horse"}`, "1.2.3.4:1000")

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("suspended account must look like bad credentials, got %d", res.Code)
	}
}

func TestLoginRateLimitedByIP(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	var res *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		res, _ = f.do(t, http.MethodPost, "/auth/login",
			`{"email":"doc@test.local","password":"wrong"}`, "1.2.3.4:1000")
	}
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt should be limited, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}

	// A different client keeps its own budget.
	res, _ = f.do(t, http.MethodPost, "/auth/login",
		`{"email":"doc@test.local","password":"correct horse"}`, "9.9.9.9:1000")
	if res.Code != http.StatusOK {
		t.Fatalf("other IP should still log in, got %d", res.Code)
	}
}

func TestLoginRotatesSessionIDAndPersistsRow(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"doc@test.local","password":"correct horse"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:1000"
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	before := sess.ID
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.ID == before {
		t.Fatalf("login must rotate the session id")
	}
	if _, ok := authRepo.sessions[before]; ok {
		t.Fatalf("pre-login session id must not be persisted")
	}
	rec, ok := authRepo.sessions[sess.ID]
	if !ok {
		t.Fatalf("login must persist a session row keyed by the rotated id")
	}
	if rec.UserID != "u-1" {
		t.Fatalf("session row bound to wrong user: %q", rec.UserID)
	}
	if !rec.ExpiresAt.After(time.Now()) {
		t.Fatalf("session row must expire in the future, got %v", rec.ExpiresAt)
	}
}

func TestLogoutRemovesSessionRow(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	_, sess := f.do(t, http.MethodPost, "/auth/login",
		`{"email":"doc@test.local","password":"correct horse"}`, "1.2.3.4:1000")
	if _, ok := authRepo.sessions[sess.ID]; !ok {
		t.Fatalf("login must persist a session row")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.RemoteAddr = "1.2.3.4:1000"
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if _, ok := authRepo.sessions[sess.ID]; ok {
		t.Fatalf("logout must remove the persisted session row")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	res, _ := f.do(t, http.MethodPost, "/auth/register",
		`{"email":"doc@test.local","name":"Someone Else","password":"supersecret"}`, "1.2.3.4:1000")

	if res.Code != http.StatusConflict {
		t.Fatalf("existing email should yield 409, got %d: %s", res.Code, res.Body.String())
	}
}

func TestRegisterCreatesPatient(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	res, _ := f.do(t, http.MethodPost, "/auth/register",
		`{"email":"new@test.local","name":"New Patient","password":"supersecret"}`, "1.2.3.4:1000")

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"role":"patient"`) {
		t.Fatalf("self-registration must produce a patient: %s", res.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	authRepo, dirRepo := activeUserFixture()
	f := newFixture(t, authRepo, dirRepo)

	res, _ := f.do(t, http.MethodPost, "/auth/register",
		`{"email":"not-an-email","name":"x","password":"short"}`, "1.2.3.4:1000")

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
