package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRetentionJob removes audit log rows older than the retention window.
type AuditRetentionJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAuditRetentionJob initialises the retention handler.
func NewAuditRetentionJob(pool *pgxpool.Pool, logger *slog.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the retention purge.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 365
	}

	cutoff := j.now().AddDate(0, 0, -payload.RetentionDays)
	logger := j.logger().With(slog.Int("retention_days", payload.RetentionDays))
	logger.Info("starting audit retention purge")

	tag, err := j.Pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		logger.Error("purge failed", slog.Any("error", err))
		return err
	}

	logger.Info("completed audit retention purge", slog.Int64("deleted", tag.RowsAffected()))
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditRetention))
	}
	return slog.Default().With(slog.String("job", TaskAuditRetention))
}

func (j *AuditRetentionJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
