// Package admin exposes the user management and permission introspection
// API. Route guards are attached by the router; handlers here assume an
// authorized user is already in context.
package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/directory"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	"github.com/hemam-center/hemam/internal/shared"
)

// Handler serves the admin JSON API.
type Handler struct {
	directory *directory.Service
	manager   *authz.Manager
	audit     *shared.AuditLogger
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler constructs the admin handler.
func NewHandler(dir *directory.Service, manager *authz.Manager, audit *shared.AuditLogger, logger *slog.Logger) *Handler {
	return &Handler{
		directory: dir,
		manager:   manager,
		audit:     audit,
		validate:  validator.New(),
		logger:    logger,
	}
}

// UserRoutes registers user management endpoints behind per-operation
// permission gates.
func (h *Handler) UserRoutes(gate authz.Middleware) func(chi.Router) {
	return func(r chi.Router) {
		r.With(gate.RequirePermission("users", "view")).Get("/", h.listUsers)
		r.With(gate.RequirePermission("users", "create")).Post("/", h.createUser)
		r.With(gate.RequirePermission("users", "view")).Get("/{userID}", h.getUser)
		r.With(gate.RequirePermission("users", "activate")).Patch("/{userID}/status", h.updateStatus)
		r.With(gate.RequirePermission("users", "edit")).Patch("/{userID}/role", h.updateRole)
	}
}

// PermissionRoutes registers catalog introspection endpoints.
func (h *Handler) PermissionRoutes(gate authz.Middleware) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(gate.RequirePermission("roles", "view"))
		r.Get("/", h.listPermissions)
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{roleID}", h.getRole)
	}
}

type userView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	ExtraGrants []string  `json:"extra_grants,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) toView(user authz.User) userView {
	return userView{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Status:      string(user.Status),
		ExtraGrants: user.ExtraGrants,
		Permissions: h.manager.UserPermissions(user.Role, user.ExtraGrants),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, h.toView(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	user, err := h.directory.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get user", slog.String("user_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if user == nil {
		httpx.RespondError(w, fmt.Errorf("%w: user %s", httpx.ErrNotFound, id))
		return
	}
	httpx.JSON(w, http.StatusOK, h.toView(*user))
}

type createUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Name        string   `json:"name" validate:"required,min=2,max=120"`
	Password    string   `json:"password" validate:"required,min=8,max=128"`
	Role        string   `json:"role" validate:"required"`
	ExtraGrants []string `json:"extra_grants"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if _, ok := h.manager.Catalog().Role(req.Role); !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	user, err := h.directory.Create(r.Context(), authz.User{
		Email:       req.Email,
		Name:        req.Name,
		Role:        req.Role,
		Status:      authz.StatusActive,
		ExtraGrants: req.ExtraGrants,
	}, hash)
	if err != nil {
		if !errors.Is(err, httpx.ErrDuplicate) {
			h.logger.Error("create user", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.recordAudit(r, "user.create", user.ID, map[string]any{"role": user.Role})
	httpx.JSON(w, http.StatusCreated, h.toView(*user))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended pending"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.directory.UpdateStatus(r.Context(), id, authz.Status(req.Status)); err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("update status", slog.String("user_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.recordAudit(r, "user.update_status", id, map[string]any{"status": req.Status})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.directory.UpdateRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, authz.ErrUnknownRole) {
			err = fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, req.Role)
		} else if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("update role", slog.String("user_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.recordAudit(r, "user.update_role", id, map[string]any{"role": req.Role})
	httpx.JSON(w, http.StatusOK, map[string]string{"role": req.Role})
}

type permissionView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms := h.manager.Catalog().Permissions()
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Resource:    p.Resource,
			Action:      p.Action,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": views})
}

type roleView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.manager.Catalog().Roles()
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, roleView{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			Level:       role.Level,
			Permissions: role.Permissions,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": views})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roleID")
	role, ok := h.manager.Catalog().Role(id)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return
	}
	httpx.JSON(w, http.StatusOK, roleView{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Level:       role.Level,
		Permissions: role.Permissions,
	})
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actor := authz.UserFromContext(r.Context())
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	entry := shared.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Entity:    "user",
		EntityID:  entityID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Meta:      meta,
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
