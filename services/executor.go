package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
)

// AutoReplyExecutor runs the body of a claimed due job: generate an AI reply
// to the original comment and retire the job. Execution is safe under
// at-least-once redelivery.
type AutoReplyExecutor struct {
	db          *gorm.DB
	store       *JobStore
	generator   ReplyGenerator
	maxLen      int
	maxAttempts int
}

// NewAutoReplyExecutor creates an executor. maxLen bounds the persisted reply
// length; maxAttempts bounds generation retries before the job is marked
// failed.
func NewAutoReplyExecutor(db *gorm.DB, store *JobStore, generator ReplyGenerator, maxLen, maxAttempts int) *AutoReplyExecutor {
	if maxLen <= 0 {
		maxLen = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &AutoReplyExecutor{db: db, store: store, generator: generator, maxLen: maxLen, maxAttempts: maxAttempts}
}

// Execute processes one claimed job. Any failure other than a stale referent
// releases the claim so the job is retried on a later poll, up to the attempt
// cap; a claimed job must never be left wedged.
func (e *AutoReplyExecutor) Execute(ctx context.Context, job models.DeferredJob) error {
	err := e.run(ctx, job)
	if err != nil && !errors.Is(err, ErrStaleJob) {
		if rerr := e.store.Release(job.ID, err, e.maxAttempts); rerr != nil {
			return rerr
		}
	}
	return err
}

// run is the job body. The reply comment, its link row, and the cleanup of
// the original comment's scheduling fields commit in a single transaction;
// re-running after a partial failure finds the existing reply and skips
// straight to cleanup.
func (e *AutoReplyExecutor) run(ctx context.Context, job models.DeferredJob) error {
	var comment models.Comment
	if err := e.db.WithContext(ctx).First(&comment, job.CommentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.retireStale(job, "comment")
		}
		return err
	}

	var user models.User
	if err := e.db.WithContext(ctx).First(&user, job.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.retireStale(job, "user")
		}
		return err
	}

	// Redelivery guard: an AI reply may already exist from a run that died
	// between creating the reply and completing the job.
	replied, err := e.hasAIReply(ctx, comment.ID)
	if err != nil {
		return err
	}
	if replied {
		sugar().Infow("auto-reply already present, cleaning up job",
			"job_id", job.ID, "comment_id", comment.ID)
		return e.finish(ctx, job, comment.ID, nil)
	}

	text, err := e.generator.Generate(ctx, comment.Content)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	text = truncateRunes(text, e.maxLen)

	// The reply is trusted system-generated content; it never passes
	// through the classifier.
	reply := models.Comment{
		PostID:        comment.PostID,
		UserID:        user.ID,
		Content:       text,
		GeneratedByAI: true,
		IsResponse:    true,
	}
	if err := e.finish(ctx, job, comment.ID, &reply); err != nil {
		return err
	}

	sugar().Infow("auto-reply posted",
		"job_id", job.ID, "comment_id", comment.ID, "reply_id", reply.ID)
	return nil
}

// retireStale drops a job whose referent no longer exists. No side effects,
// no retry.
func (e *AutoReplyExecutor) retireStale(job models.DeferredJob, missing string) error {
	sugar().Infow("retiring stale auto-reply job",
		"job_id", job.ID, "comment_id", job.CommentID, "missing", missing)
	if err := e.store.Complete(job.ID); err != nil {
		return err
	}
	return ErrStaleJob
}

// hasAIReply reports whether an AI-generated response is already linked to
// the comment.
func (e *AutoReplyExecutor) hasAIReply(ctx context.Context, commentID uint) (bool, error) {
	sub := e.db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Comment{}).Select("id").Where("generated_by_ai = ?", true)

	var count int64
	err := e.db.WithContext(ctx).Model(&models.CommentResponse{}).
		Where("comment_id = ? AND response_id IN (?)", commentID, sub).
		Count(&count).Error
	return count > 0, err
}

// finish atomically persists the reply (when given), clears the original
// comment's scheduling fields, and removes the job.
func (e *AutoReplyExecutor) finish(ctx context.Context, job models.DeferredJob, commentID uint, reply *models.Comment) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reply != nil {
			if err := tx.Create(reply).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.CommentResponse{
				CommentID:  commentID,
				ResponseID: reply.ID,
			}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
			Updates(map[string]interface{}{
				"pending_job_id":     nil,
				"scheduled_reply_at": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DeferredJob{}, "id = ?", job.ID).Error
	})
}

// truncateRunes bounds s to max runes. The oracle is asked for short replies
// but the bound is enforced here, not trusted.
func truncateRunes(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max])
}
