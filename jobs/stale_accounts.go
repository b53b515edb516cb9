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

// StaleAccountsJob deactivates accounts that have not logged in for the
// configured number of days. Deactivated users fail the guard's status check
// on their next request.
type StaleAccountsJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewStaleAccountsJob initialises the stale account handler.
func NewStaleAccountsJob(pool *pgxpool.Pool, logger *slog.Logger) *StaleAccountsJob {
	return &StaleAccountsJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the stale account sweep. Admin accounts are exempt so an
// idle deployment cannot lock out its last administrator.
func (j *StaleAccountsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("stale accounts: handler not configured")
	}
	var payload StaleAccountsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.InactiveDays <= 0 {
		payload.InactiveDays = 180
	}

	cutoff := j.now().AddDate(0, 0, -payload.InactiveDays)
	logger := j.logger().With(slog.Int("inactive_days", payload.InactiveDays))
	logger.Info("starting stale account sweep")

	tag, err := j.Pool.Exec(ctx,
		`UPDATE users SET status = 'inactive', updated_at = NOW()
		 WHERE status = 'active'
		   AND role <> 'admin'
		   AND COALESCE(last_login_at, created_at) < $1`, cutoff)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return err
	}

	logger.Info("completed stale account sweep", slog.Int64("deactivated", tag.RowsAffected()))
	return nil
}

func (j *StaleAccountsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStaleAccounts))
	}
	return slog.Default().With(slog.String("job", TaskStaleAccounts))
}

func (j *StaleAccountsJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
