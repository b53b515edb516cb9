package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/platform/httpx"
)

// Credentials is the login projection of a user row.
type Credentials struct {
	UserID       string
	PasswordHash string
	Status       authz.Status
}

// SessionRecord is the persisted trail of a login session. The live session
// state stays in Redis; these rows exist so operators can answer who was
// signed in from where, and survive a cache flush.
type SessionRecord struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
}

// RepositoryPort defines data access for authentication.
type RepositoryPort interface {
	CredentialsByEmail(ctx context.Context, email string) (Credentials, error)
	TouchLastLogin(ctx context.Context, userID string) error
	CreateSession(ctx context.Context, rec SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
}

// Repository provides PostgreSQL backed credential lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CredentialsByEmail loads the credential projection for a login attempt.
func (r *Repository) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	var creds Credentials
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, password_hash, status FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&creds.UserID, &creds.PasswordHash, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credentials{}, httpx.ErrNotFound
		}
		return Credentials{}, err
	}
	creds.Status = authz.Status(status)
	return creds, nil
}

// TouchLastLogin stamps the last successful login time.
func (r *Repository) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	return err
}

// CreateSession records a login session row.
func (r *Repository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, ip_address, user_agent, expires_at, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NOW())
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		rec.ID, rec.UserID, rec.IPAddress, rec.UserAgent, rec.ExpiresAt)
	return err
}

// DeleteSession removes a session row after logout.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
