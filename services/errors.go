package services

import (
	"errors"

	"go.uber.org/zap"

	"github.com/xKuroiUsagix/ai-blog/utils"
)

var (
	// ErrNotFound means a referenced post, comment or user does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrContentBlocked means the requested comment was blocked by the
	// safety screen. Distinct from ErrNotFound: the record exists.
	ErrContentBlocked = errors.New("content blocked")
	// ErrForbidden means the requester is not allowed to act on the record.
	ErrForbidden = errors.New("forbidden")
	// ErrStaleJob means a deferred job referenced data that no longer
	// exists; the job has been retired without side effects.
	ErrStaleJob = errors.New("stale job")
)

// Client-facing messages for moderation outcomes.
const (
	HarmfulContentError = "Provided content was considered as harmful and was blocked."
	BlockedCommentError = "The comment you are trying to receive was blocked due to safety reasons."
)

// sugar returns the global sugared logger, or a nop logger before
// initialization (tests).
func sugar() *zap.SugaredLogger {
	if utils.Sugar != nil {
		return utils.Sugar
	}
	return zap.NewNop().Sugar()
}
