// Package auth implements credential verification and the login, logout and
// registration flows that feed the session store.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/directory"
	"github.com/hemam-center/hemam/internal/platform/httpx"
	"github.com/hemam-center/hemam/internal/shared"
)

// Service handles authentication business logic.
type Service struct {
	repo      RepositoryPort
	directory *directory.Service
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, dir *directory.Service, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: dir, logger: logger}
}

// Authenticate verifies an email/password pair. Unknown emails, wrong
// passwords and non-active accounts all return ErrInvalidCredentials so the
// response does not reveal which check failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*authz.User, error) {
	creds, err := s.repo.CredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			// Burn a comparison so timing does not leak account existence.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalid"), []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if creds.Status != authz.StatusActive {
		return nil, shared.ErrInvalidCredentials
	}

	user, err := s.directory.Get(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, creds.UserID); err != nil {
		s.logger.Warn("failed to stamp last login", slog.String("user_id", creds.UserID), slog.Any("error", err))
	}
	return user, nil
}

// RegisterSession persists the audit row for a fresh login session.
func (s *Service) RegisterSession(ctx context.Context, rec SessionRecord) error {
	return s.repo.CreateSession(ctx, rec)
}

// RemoveSession drops the persisted row when a session ends.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates a new patient account. Self-registration never picks a
// role; staff accounts are provisioned through the admin surface.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*authz.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := authz.User{
		Email:  input.Email,
		Name:   input.Name,
		Role:   authz.RolePatient,
		Status: authz.StatusActive,
	}
	return s.directory.Create(ctx, user, string(hash))
}
