package models

import "time"

// JobKindAutoCommentResponse is the only job kind this service schedules.
const JobKindAutoCommentResponse = "auto_comment_response"

// JobStatus is the lifecycle state of a deferred job.
type JobStatus string

const (
	// JobStatusPending jobs are waiting for their fire time.
	JobStatusPending JobStatus = "pending"
	// JobStatusClaimed jobs are owned by exactly one executor.
	JobStatusClaimed JobStatus = "claimed"
	// JobStatusFailed jobs exhausted their retries and are kept for
	// operator inspection only.
	JobStatusFailed JobStatus = "failed"
)

// DeferredJob is a one-shot unit of work persisted independently of the
// process that created it. The unique index on CommentID enforces the
// one-job-per-comment invariant at the storage level.
type DeferredJob struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Kind      string    `gorm:"size:64;not null" json:"kind"`
	CommentID uint      `gorm:"uniqueIndex;not null" json:"comment_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	FireAt    time.Time `gorm:"index;not null" json:"fire_at"`
	Status    JobStatus `gorm:"size:16;index;not null;default:'pending'" json:"status"`
	// ClaimedAt is set while an executor owns the job. A claim older than
	// the worker's lease means that executor died; the job is reclaimable.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError string    `gorm:"size:512" json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
