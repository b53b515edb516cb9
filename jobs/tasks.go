// Package jobs contains the background maintenance workers. Audit log
// retention, stale account deactivation and expired session purging run on a
// schedule via Asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention purges audit log rows past the retention window.
	TaskAuditRetention = "audit:retention"
	// TaskStaleAccounts deactivates accounts with no recent login.
	TaskStaleAccounts = "accounts:deactivate_stale"
	// TaskSessionPurge deletes persisted session rows past expiry.
	TaskSessionPurge = "sessions:purge_expired"
)

// AuditRetentionPayload controls the audit purge window.
type AuditRetentionPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditRetentionTask constructs an audit retention task.
func NewAuditRetentionTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditRetentionPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// StaleAccountsPayload controls the stale account sweep.
type StaleAccountsPayload struct {
	InactiveDays int `json:"inactive_days"`
}

// NewStaleAccountsTask constructs a stale account sweep task.
func NewStaleAccountsTask(inactiveDays int) (*asynq.Task, error) {
	data, err := json.Marshal(StaleAccountsPayload{InactiveDays: inactiveDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleAccounts, data), nil
}

// NewSessionPurgeTask constructs an expired session purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil)
}
