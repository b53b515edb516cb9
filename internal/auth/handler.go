package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	"github.com/hemam-center/hemam/internal/ratelimit"
	"github.com/hemam-center/hemam/internal/shared"
)

// Handler exposes the authentication JSON API.
type Handler struct {
	service  *Service
	guard    *authz.Guard
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	audit    *shared.AuditLogger
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs the auth handler.
func NewHandler(service *Service, guard *authz.Guard, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit *shared.AuditLogger, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		guard:    guard,
		sessions: sessions,
		csrf:     csrf,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes registers the authentication endpoints. The login and registration
// limiters run before any credential work so rejected attempts never touch
// the database.
func (h *Handler) Routes(limits *ratelimit.Set) func(chi.Router) {
	return func(r chi.Router) {
		r.With(limits.Login.Middleware(ratelimit.KeyByIP)).Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.With(limits.Registration.Middleware(ratelimit.KeyByIP)).Post("/register", h.register)
		r.Get("/me", h.me)
		r.Get("/csrf", h.csrfToken)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) userView(user *authz.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Status:      string(user.Status),
		Permissions: h.guard.Manager().UserPermissions(user.Role, user.ExtraGrants),
		CreatedAt:   user.CreatedAt,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.recordAudit(r, "", "auth.login_failed", "user", "", map[string]any{"email": req.Email})
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing on login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID)

	// The rotated session id is the one the cookie will carry, so the
	// persisted row is keyed by it.
	if err := h.service.RegisterSession(r.Context(), SessionRecord{
		ID:        sess.ID,
		UserID:    user.ID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		ExpiresAt: time.Now().Add(h.sessions.TTL()).UTC(),
	}); err != nil {
		h.logger.Warn("failed to persist session row", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	h.recordAudit(r, user.ID, "auth.login", "user", user.ID, nil)
	httpx.JSON(w, http.StatusOK, h.userView(user))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		actor := sess.User()
		if actor != "" {
			if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("failed to remove session row", slog.Any("error", err))
			}
		}
		h.sessions.Destroy(sess)
		if actor != "" {
			h.recordAudit(r, actor, "auth.logout", "user", actor, nil)
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrDuplicate) {
			h.logger.Error("registration failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.recordAudit(r, user.ID, "auth.register", "user", user.ID, nil)
	httpx.JSON(w, http.StatusCreated, h.userView(user))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	result := h.guard.Authorize(r.Context(), r)
	if !result.OK() {
		status := result.Err.HTTPStatus()
		httpx.ProblemCode(w, status, http.StatusText(status), "", string(result.Err))
		return
	}
	httpx.JSON(w, http.StatusOK, h.userView(result.User))
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) recordAudit(r *http.Request, actorID, action, entity, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Meta:      meta,
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
