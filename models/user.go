package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a blog user. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Signature    string `gorm:"size:255" json:"signature"`
	// AutoReplyDelay is the delay in minutes before an AI reply is posted to
	// comments on this user's posts. Nil disables the feature.
	AutoReplyDelay *uint          `json:"auto_reply_delay"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Comments       []Comment      `json:"-"`
	Posts          []Post         `json:"-"`
}

// AutoReplyEnabled reports whether this user opted into AI auto-replies.
func (u *User) AutoReplyEnabled() bool {
	return u.AutoReplyDelay != nil && *u.AutoReplyDelay > 0
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
