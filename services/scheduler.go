package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
)

// AutoReplyScheduler registers one-shot deferred jobs for comments that
// should receive an AI reply.
type AutoReplyScheduler struct {
	db    *gorm.DB
	store *JobStore
}

// NewAutoReplyScheduler creates a scheduler over the given job store.
func NewAutoReplyScheduler(db *gorm.DB, store *JobStore) *AutoReplyScheduler {
	return &AutoReplyScheduler{db: db, store: store}
}

// MaybeSchedule registers an auto-reply job for the comment when the post's
// author opted in. It is a no-op for ineligible comments and for comments
// that already carry a pending job, so a retried call converges instead of
// producing duplicates. Job registration and the comment back-reference are
// written in one transaction.
func (s *AutoReplyScheduler) MaybeSchedule(ctx context.Context, comment *models.Comment) error {
	if !comment.EligibleForAutoReply() {
		return nil
	}

	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, comment.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, post.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !owner.AutoReplyEnabled() {
		return nil
	}

	fireAt := comment.CreatedAt.Add(time.Duration(*owner.AutoReplyDelay) * time.Minute)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, created, err := s.store.Register(tx, &models.DeferredJob{
			ID:        uuid.NewString(),
			Kind:      models.JobKindAutoCommentResponse,
			CommentID: comment.ID,
			UserID:    owner.ID,
			FireAt:    fireAt,
			Status:    models.JobStatusPending,
		})
		if err != nil {
			return err
		}
		if !created {
			sugar().Debugw("auto-reply job already registered",
				"comment_id", comment.ID, "job_id", job.ID)
		}

		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).
			Updates(map[string]interface{}{
				"pending_job_id":     job.ID,
				"scheduled_reply_at": job.FireAt,
			}).Error; err != nil {
			return err
		}

		comment.PendingJobID = &job.ID
		comment.ScheduledReplyAt = &job.FireAt
		return nil
	})
}
