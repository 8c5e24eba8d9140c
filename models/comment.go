package models

import "time"

// MaxCommentLength is the maximum accepted comment length in characters.
const MaxCommentLength = 512

// Comment represents a reply to a post. Blocked comments stay persisted for
// audit and analytics but are excluded from every public read path.
type Comment struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	PostID        uint   `gorm:"index;not null" json:"post_id"`
	UserID        uint   `gorm:"index;not null" json:"user_id"`
	Content       string `gorm:"size:512;not null" json:"content"`
	GeneratedByAI bool   `gorm:"index;not null;default:false" json:"generated_by_ai"`
	IsResponse    bool   `gorm:"index;not null;default:false" json:"is_response"`
	IsBlocked     bool   `gorm:"not null;default:false" json:"is_blocked"`
	// ScheduledReplyAt and PendingJobID are set only while a deferred
	// auto-reply job exists for this comment. PendingJobID is a lookup-only
	// reference; the job row does not point back.
	ScheduledReplyAt *time.Time `json:"scheduled_reply_at,omitempty"`
	PendingJobID     *string    `gorm:"size:36" json:"-"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	User             User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}

// EligibleForAutoReply reports whether this comment may trigger an automatic
// reply: user-submitted, top-level, unblocked, and not already scheduled.
// This is the single gate for the scheduling invariant; no other code checks
// the flags directly.
func (c *Comment) EligibleForAutoReply() bool {
	return !c.GeneratedByAI && !c.IsResponse && !c.IsBlocked && c.PendingJobID == nil
}
