package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionPurgeJob removes persisted session rows past their expiry. The live
// session state in Redis expires on its own; this keeps the audit table from
// growing without bound.
type SessionPurgeJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewSessionPurgeJob initialises the purge handler.
func NewSessionPurgeJob(pool *pgxpool.Pool, logger *slog.Logger) *SessionPurgeJob {
	return &SessionPurgeJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the expired session purge.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("session purge: handler not configured")
	}

	logger := j.logger()
	logger.Info("starting session purge")

	tag, err := j.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, j.now())
	if err != nil {
		logger.Error("purge failed", slog.Any("error", err))
		return err
	}

	logger.Info("completed session purge", slog.Int64("deleted", tag.RowsAffected()))
	return nil
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionPurge))
	}
	return slog.Default().With(slog.String("job", TaskSessionPurge))
}

func (j *SessionPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
