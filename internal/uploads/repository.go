// Package uploads receives document uploads for patient records and staff
// paperwork. The endpoint sits behind the upload rate limiter keyed by user.
package uploads

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Document is a stored upload's metadata row.
type Document struct {
	ID          string
	OwnerID     string
	Filename    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// RepositoryPort defines data access for upload metadata.
type RepositoryPort interface {
	Create(ctx context.Context, doc Document) error
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an upload metadata row.
func (r *Repository) Create(ctx context.Context, doc Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, owner_id, filename, content_type, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.CreatedAt)
	return err
}

// ListByOwner returns upload metadata for one user, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, filename, content_type, size_bytes, created_at
		 FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType,
			&doc.SizeBytes, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
