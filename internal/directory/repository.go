// Package directory provides the persistent user store behind the
// authorization guard: role, status and per-user extra grants.
package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/platform/httpx"
)

// RepositoryPort defines data access methods for the user directory.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (*authz.User, error)
	FindByEmail(ctx context.Context, email string) (*authz.User, error)
	List(ctx context.Context) ([]authz.User, error)
	Create(ctx context.Context, user authz.User, passwordHash string) (*authz.User, error)
	UpdateStatus(ctx context.Context, id string, status authz.Status) error
	UpdateRole(ctx context.Context, id, role string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, status, extra_grants, created_at, updated_at`

// Get fetches a user by id. A missing record returns (nil, nil): absence is
// an expected outcome, not an infrastructure failure.
func (r *Repository) Get(ctx context.Context, id string) (*authz.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// FindByEmail fetches a user by email address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*authz.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns all users ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]authz.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []authz.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a new user record and returns the stored row.
func (r *Repository) Create(ctx context.Context, user authz.User, passwordHash string) (*authz.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, role, status, extra_grants, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.Role, string(user.Status), user.ExtraGrants, passwordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

const pgerrUniqueViolation = "23505"

// UpdateStatus changes a user's account status.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status authz.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// UpdateRole changes a user's role.
func (r *Repository) UpdateRole(ctx context.Context, id, role string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*authz.User, error) {
	var user authz.User
	var status string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &status,
		&user.ExtraGrants, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Status = authz.Status(status)
	return &user, nil
}
