package models

import "time"

// CommentResponse links an original comment to the comment replying to it.
// A response points back to exactly one parent; a parent may have many
// responses. Links are recorded even for blocked replies so the audit trail
// stays complete.
type CommentResponse struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CommentID  uint      `gorm:"index;not null" json:"comment_id"`
	ResponseID uint      `gorm:"index;not null" json:"response_id"`
	CreatedAt  time.Time `json:"created_at"`
}
