package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hemam-center/hemam/internal/admin"
	"github.com/hemam-center/hemam/internal/auth"
	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/observability"
	"github.com/hemam-center/hemam/internal/ratelimit"
	"github.com/hemam-center/hemam/internal/shared"
	"github.com/hemam-center/hemam/internal/uploads"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *authz.Guard
	Limits         *ratelimit.Set
	AuthHandler    *auth.Handler
	AdminHandler   *admin.Handler
	UploadsHandler *uploads.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router. Guards run before the per-class
// limiters on authenticated subtrees so limiter keys can use the resolved
// user id; the auth subtree limits by IP before any credential check.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	gate := authz.Middleware{Guard: params.Guard, Logger: params.Logger}
	if params.Metrics != nil {
		gate.Denied = params.Metrics.AuthzDenied
		params.Limits.Login.WithOnReject(func() { params.Metrics.RateLimited("login") })
		params.Limits.Registration.WithOnReject(func() { params.Metrics.RateLimited("registration") })
		params.Limits.Upload.WithOnReject(func() { params.Metrics.RateLimited("upload") })
		params.Limits.API.WithOnReject(func() { params.Metrics.RateLimited("api") })
	}

	r.Route("/auth", params.AuthHandler.Routes(params.Limits))

	r.Route("/api", func(r chi.Router) {
		r.Use(params.Limits.API.Middleware(keyByUserOrIP))

		r.Route("/admin/users", params.AdminHandler.UserRoutes(gate))
		r.Route("/permissions", params.AdminHandler.PermissionRoutes(gate))

		r.Route("/uploads", func(r chi.Router) {
			r.Use(gate.RequireAuth())
			r.Use(params.Limits.Upload.Middleware(keyByUser))
			params.UploadsHandler.Routes(r)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// keyByUser keys a limiter on the authorized user. An empty key disables the
// budget, so this must only sit behind a guard.
func keyByUser(r *http.Request) string {
	if user := authz.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ""
}

// keyByUserOrIP prefers the resolved user and falls back to client IP for
// anonymous traffic.
func keyByUserOrIP(r *http.Request) string {
	if user := authz.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ratelimit.KeyByIP(r)
}
