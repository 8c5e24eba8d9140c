package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
)

// SubmitResult is the discriminated outcome of a comment submission.
type SubmitResult int

const (
	// ResultPublished means the comment passed the safety screen.
	ResultPublished SubmitResult = iota
	// ResultBlocked means the comment was persisted but blocked; the
	// caller maps this to a client-visible rejection.
	ResultBlocked
)

// ModerationService owns the comment write path: every user-submitted
// comment goes through the safety classifier exactly once and is persisted
// unconditionally, with the verdict recorded on the row.
type ModerationService struct {
	db         *gorm.DB
	classifier SafetyClassifier
	scheduler  *AutoReplyScheduler
	store      *JobStore
}

// NewModerationService wires the moderation engine.
func NewModerationService(db *gorm.DB, classifier SafetyClassifier, scheduler *AutoReplyScheduler, store *JobStore) *ModerationService {
	return &ModerationService{db: db, classifier: classifier, scheduler: scheduler, store: store}
}

// SubmitComment validates the target post (and parent comment for replies),
// classifies the content, persists the comment with its verdict, records the
// reply link when present, and triggers the auto-reply scheduler for
// eligible comments. The comment row is durably written before scheduling is
// attempted.
func (m *ModerationService) SubmitComment(ctx context.Context, authorID, postID uint, content string, inReplyTo *uint) (*models.Comment, SubmitResult, error) {
	var post models.Post
	if err := m.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ResultBlocked, ErrNotFound
		}
		return nil, ResultBlocked, err
	}

	var parent *models.Comment
	if inReplyTo != nil {
		var pc models.Comment
		if err := m.db.WithContext(ctx).First(&pc, *inReplyTo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ResultBlocked, ErrNotFound
			}
			return nil, ResultBlocked, err
		}
		parent = &pc
	}

	verdict := m.classify(ctx, content)

	comment := models.Comment{
		PostID:     post.ID,
		UserID:     authorID,
		Content:    content,
		IsResponse: parent != nil,
		IsBlocked:  verdict == VerdictBlocked,
	}

	// A blocked reply still records the linkage for audit; retrieval paths
	// hide the content.
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if parent != nil {
			return tx.Create(&models.CommentResponse{
				CommentID:  parent.ID,
				ResponseID: comment.ID,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, ResultBlocked, err
	}

	if comment.IsBlocked {
		sugar().Infow("comment blocked by safety screen",
			"comment_id", comment.ID, "post_id", post.ID, "user_id", authorID)
		return &comment, ResultBlocked, nil
	}

	if comment.EligibleForAutoReply() {
		if err := m.scheduler.MaybeSchedule(ctx, &comment); err != nil {
			// The comment is already published; a scheduling failure must
			// not surface to the submitter.
			sugar().Errorw("auto-reply scheduling failed",
				"comment_id", comment.ID, "error", err)
		}
	}

	return &comment, ResultPublished, nil
}

// VerifySafe screens free-form content (post bodies). Classifier failure
// counts as unsafe: unmoderated content never publishes.
func (m *ModerationService) VerifySafe(ctx context.Context, content string) bool {
	return m.classify(ctx, content) == VerdictAllowed
}

// classify invokes the classifier exactly once, mapping failure to Blocked.
func (m *ModerationService) classify(ctx context.Context, content string) Verdict {
	verdict, err := m.classifier.Classify(ctx, content)
	if err != nil {
		sugar().Warnw("classifier unavailable, failing closed", "error", err)
		return VerdictBlocked
	}
	return verdict
}

// GetComment returns a comment by id. Blocked comments yield
// ErrContentBlocked so callers can distinguish them from missing records.
func (m *ModerationService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := m.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if comment.IsBlocked {
		return nil, ErrContentBlocked
	}
	return &comment, nil
}

// ListPostComments returns the post's public comments, newest first. Blocked
// comments and responses are excluded; responses are reachable through their
// parent's link rows.
func (m *ModerationService) ListPostComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var post models.Post
	if err := m.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var comments []models.Comment
	err := m.db.WithContext(ctx).
		Where("post_id = ? AND is_blocked = ? AND is_response = ?", postID, false, false).
		Order("created_at DESC").
		Preload("User").
		Find(&comments).Error
	return comments, err
}

// ListCommentResponses returns the unblocked replies linked to a comment.
func (m *ModerationService) ListCommentResponses(ctx context.Context, commentID uint) ([]models.Comment, error) {
	sub := m.db.Session(&gorm.Session{NewDB: true}).
		Model(&models.CommentResponse{}).Select("response_id").Where("comment_id = ?", commentID)

	var responses []models.Comment
	err := m.db.WithContext(ctx).
		Where("id IN (?) AND is_blocked = ?", sub, false).
		Order("created_at ASC").
		Preload("User").
		Find(&responses).Error
	return responses, err
}

// DeleteComment removes a comment when the requester authored it or owns the
// post. Any pending auto-reply job and the comment's link rows go with it in
// the same transaction.
func (m *ModerationService) DeleteComment(ctx context.Context, commentID, requesterID uint) error {
	var comment models.Comment
	if err := m.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var post models.Post
	if err := m.db.WithContext(ctx).First(&post, comment.PostID).Error; err != nil {
		return err
	}
	if comment.UserID != requesterID && post.UserID != requesterID {
		return ErrForbidden
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.store.CancelForComment(tx, comment.ID); err != nil {
			return err
		}
		if err := tx.Where("comment_id = ? OR response_id = ?", comment.ID, comment.ID).
			Delete(&models.CommentResponse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
}

// DeletePost removes a post with its comments, link rows, and any pending
// auto-reply jobs. Eager cancellation here bounds how long stale jobs can
// linger; the executor's refetch remains the backstop.
func (m *ModerationService) DeletePost(ctx context.Context, postID uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.store.CancelForPost(tx, postID); err != nil {
			return err
		}

		sub := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?) OR response_id IN (?)", sub, sub).
			Delete(&models.CommentResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, "post_id = ?", postID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
}
