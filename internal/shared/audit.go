package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs. ActorID may be empty for
// anonymous events (failed logins, rate-limited requests).
type AuditLog struct {
	ActorID   string
	Action    string
	Entity    string
	EntityID  string
	IPAddress string
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" {
		return errors.New("audit log requires action")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, ip_address, user_agent, meta, occurred_at)
		 VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8)`,
		log.ActorID, log.Action, log.Entity, log.EntityID, log.IPAddress, log.UserAgent, metaJSON, at)
	return err
}
