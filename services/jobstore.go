package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
)

// JobStore is the durable substrate for one-shot deferred jobs. All mutations
// are atomic per job id so multiple worker processes can share one table.
type JobStore struct {
	db *gorm.DB
}

// NewJobStore creates a store over the deferred_jobs table.
func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// Register inserts the job unless one already exists for the same comment.
// Re-registration is an idempotent no-op: the existing job is returned and
// created is false. The unique index on comment_id backs this up against
// concurrent registrations.
func (s *JobStore) Register(tx *gorm.DB, job *models.DeferredJob) (*models.DeferredJob, bool, error) {
	if tx == nil {
		tx = s.db
	}

	var existing models.DeferredJob
	err := tx.Where("comment_id = ?", job.CommentID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if err := tx.Create(job).Error; err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// PollDue returns pending jobs whose fire time has passed, ordered by fire_at
// ascending with job id as tie-break. Claimed and failed jobs never appear.
func (s *JobStore) PollDue(now time.Time) ([]models.DeferredJob, error) {
	var jobs []models.DeferredJob
	err := s.db.
		Where("status = ? AND fire_at <= ?", models.JobStatusPending, now).
		Order("fire_at ASC, id ASC").
		Find(&jobs).Error
	return jobs, err
}

// Claim transitions a job from pending to claimed and stamps the claim time.
// Exactly one caller wins; everyone else gets false. This is the
// compare-and-swap that keeps concurrent pollers from executing the same job
// twice.
func (s *JobStore) Claim(id string) (bool, error) {
	res := s.db.Model(&models.DeferredJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusClaimed,
			"claimed_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReclaimExpired returns claims older than the lease to the pending pool.
// A claim that outlived the lease means its executor died mid-flight; the
// reclaim counts as a failed attempt so a crash-looping job still hits the
// retry cap instead of cycling forever.
func (s *JobStore) ReclaimExpired(now time.Time, lease time.Duration, maxAttempts int) error {
	cutoff := now.Add(-lease)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var jobs []models.DeferredJob
		if err := tx.Where("status = ? AND claimed_at <= ?", models.JobStatusClaimed, cutoff).
			Find(&jobs).Error; err != nil {
			return err
		}
		for i := range jobs {
			job := &jobs[i]
			job.Attempts++
			job.LastError = "claim expired"
			job.ClaimedAt = nil
			if job.Attempts >= maxAttempts {
				job.Status = models.JobStatusFailed
			} else {
				job.Status = models.JobStatusPending
			}
			if err := tx.Save(job).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete removes a job after successful execution. Idempotent.
func (s *JobStore) Complete(id string) error {
	return s.db.Delete(&models.DeferredJob{}, "id = ?", id).Error
}

// Cancel removes a job before it fires. No-op when the job already fired or
// was removed.
func (s *JobStore) Cancel(id string) error {
	return s.db.Delete(&models.DeferredJob{}, "id = ?", id).Error
}

// CancelForComment removes any job tied to the comment, inside the caller's
// transaction. Used by delete paths to eagerly drop jobs instead of waiting
// for the executor to notice the missing referent.
func (s *JobStore) CancelForComment(tx *gorm.DB, commentID uint) error {
	if tx == nil {
		tx = s.db
	}
	return tx.Delete(&models.DeferredJob{}, "comment_id = ?", commentID).Error
}

// CancelForPost removes jobs tied to any comment of the post.
func (s *JobStore) CancelForPost(tx *gorm.DB, postID uint) error {
	if tx == nil {
		tx = s.db
	}
	sub := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
	return tx.Where("comment_id IN (?)", sub).Delete(&models.DeferredJob{}).Error
}

// Release returns a claimed job to the pending pool after a failed execution,
// recording the cause. Once attempts reach maxAttempts the job is marked
// failed: excluded from polling, retained for inspection.
func (s *JobStore) Release(id string, cause error, maxAttempts int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var job models.DeferredJob
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		job.Attempts++
		job.ClaimedAt = nil
		if cause != nil {
			msg := cause.Error()
			if len(msg) > 512 {
				msg = msg[:512]
			}
			job.LastError = msg
		}
		if job.Attempts >= maxAttempts {
			job.Status = models.JobStatusFailed
		} else {
			job.Status = models.JobStatusPending
		}
		return tx.Save(&job).Error
	})
}

// ListFailed returns permanently failed jobs for operator inspection.
func (s *JobStore) ListFailed() ([]models.DeferredJob, error) {
	var jobs []models.DeferredJob
	err := s.db.
		Where("status = ?", models.JobStatusFailed).
		Order("updated_at DESC").
		Find(&jobs).Error
	return jobs, err
}
