package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentResponse{},
		&models.DeferredJob{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, replyDelay *uint) models.User {
	t.Helper()
	user := models.User{Username: name, AutoReplyDelay: replyDelay}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, owner models.User) models.Post {
	t.Helper()
	post := models.Post{UserID: owner.ID, Title: "hello", Content: "first post"}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func minutes(n uint) *uint { return &n }

// stubClassifier returns a fixed verdict or error for every input.
type stubClassifier struct {
	verdict Verdict
	err     error
}

func (s stubClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	return s.verdict, s.err
}

// stubGenerator returns a fixed reply and records how often it ran. A delay
// simulates a slow oracle call.
type stubGenerator struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, text string) (string, error) {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newEngine(db *gorm.DB, classifier SafetyClassifier) (*ModerationService, *JobStore) {
	store := NewJobStore(db)
	scheduler := NewAutoReplyScheduler(db, store)
	return NewModerationService(db, classifier, scheduler, store), store
}

func jobForComment(t *testing.T, db *gorm.DB, commentID uint) models.DeferredJob {
	t.Helper()
	var job models.DeferredJob
	require.NoError(t, db.First(&job, "comment_id = ?", commentID).Error)
	return job
}
