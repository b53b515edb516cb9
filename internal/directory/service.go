package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hemam-center/hemam/internal/authz"
)

// Service handles directory business logic. It implements the guard's
// UserDirectory port: extra grants are validated against the catalog here so
// arbitrary stored strings never reach an authorization decision.
type Service struct {
	repo    RepositoryPort
	manager *authz.Manager
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, manager *authz.Manager) *Service {
	return &Service{repo: repo, manager: manager}
}

// Get returns the directory snapshot for an authorization decision.
func (s *Service) Get(ctx context.Context, userID string) (*authz.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil || user == nil {
		return user, err
	}
	user.ExtraGrants = s.manager.ValidateGrants(user.ExtraGrants)
	return user, nil
}

// FindByEmail resolves a user by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*authz.User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]authz.User, error) {
	return s.repo.List(ctx)
}

// Create registers a new user. Unknown roles default to patient and unknown
// extra grants are dropped: the directory refuses to store what the catalog
// cannot authorize.
func (s *Service) Create(ctx context.Context, user authz.User, passwordHash string) (*authz.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Role = strings.ToLower(strings.TrimSpace(user.Role))
	if _, ok := s.manager.Catalog().Role(user.Role); !ok {
		user.Role = authz.RolePatient
	}
	if user.Status == "" {
		user.Status = authz.StatusPending
	}
	user.ExtraGrants = s.manager.ValidateGrants(user.ExtraGrants)
	return s.repo.Create(ctx, user, passwordHash)
}

// UpdateStatus changes a user's account status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status authz.Status) error {
	return s.repo.UpdateStatus(ctx, id, status)
}

// UpdateRole changes a user's role; unknown roles are rejected by leaving the
// record untouched.
func (s *Service) UpdateRole(ctx context.Context, id, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := s.manager.Catalog().Role(role); !ok {
		return authz.ErrUnknownRole
	}
	return s.repo.UpdateRole(ctx, id, role)
}
