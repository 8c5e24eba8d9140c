package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xKuroiUsagix/ai-blog/models"
)

func newJob(commentID, userID uint, fireAt time.Time) *models.DeferredJob {
	return &models.DeferredJob{
		ID:        uuid.NewString(),
		Kind:      models.JobKindAutoCommentResponse,
		CommentID: commentID,
		UserID:    userID,
		FireAt:    fireAt,
		Status:    models.JobStatusPending,
	}
}

func TestRegisterIsIdempotentPerComment(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)
	fireAt := time.Now().Add(time.Hour)

	first, created, err := store.Register(nil, newJob(1, 10, fireAt))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := store.Register(nil, newJob(1, 10, fireAt.Add(time.Hour)))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPollDueOrderingAndFiltering(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)
	now := time.Now()

	late := newJob(1, 10, now.Add(-time.Minute))
	early := newJob(2, 10, now.Add(-time.Hour))
	future := newJob(3, 10, now.Add(time.Hour))
	for _, j := range []*models.DeferredJob{late, early, future} {
		_, _, err := store.Register(nil, j)
		require.NoError(t, err)
	}

	due, err := store.PollDue(now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, early.ID, due[0].ID)
	require.Equal(t, late.ID, due[1].ID)
}

func TestClaimWinsExactlyOnce(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	job := newJob(1, 10, time.Now().Add(-time.Minute))
	_, _, err := store.Register(nil, job)
	require.NoError(t, err)

	won, err := store.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	won, err = store.Claim(job.ID)
	require.NoError(t, err)
	require.False(t, won)

	// Claimed jobs disappear from polling.
	due, err := store.PollDue(time.Now())
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestCancelIsIdempotent(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	job := newJob(1, 10, time.Now().Add(time.Hour))
	_, _, err := store.Register(nil, job)
	require.NoError(t, err)

	require.NoError(t, store.Cancel(job.ID))
	require.NoError(t, store.Cancel(job.ID))

	var count int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestReleaseRetriesThenFails(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	job := newJob(1, 10, time.Now().Add(-time.Minute))
	_, _, err := store.Register(nil, job)
	require.NoError(t, err)

	cause := errors.New("oracle unreachable")

	won, err := store.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, store.Release(job.ID, cause, 2))

	// First release returns the job to the pending pool.
	due, err := store.PollDue(time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 1, due[0].Attempts)

	won, err = store.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, store.Release(job.ID, cause, 2))

	// Second release hits the cap: failed, never polled again.
	due, err = store.PollDue(time.Now())
	require.NoError(t, err)
	require.Empty(t, due)

	failed, err := store.ListFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, models.JobStatusFailed, failed[0].Status)
	require.Equal(t, 2, failed[0].Attempts)
	require.Equal(t, "oracle unreachable", failed[0].LastError)
}

func TestReclaimExpiredClaims(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	job := newJob(1, 10, time.Now().Add(-time.Hour))
	_, _, err := store.Register(nil, job)
	require.NoError(t, err)

	won, err := store.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)

	// A fresh claim is left alone.
	require.NoError(t, store.ReclaimExpired(time.Now(), 5*time.Minute, 3))
	due, err := store.PollDue(time.Now())
	require.NoError(t, err)
	require.Empty(t, due)

	// Backdate the claim beyond the lease: the job returns to the pool
	// with the attempt counted.
	require.NoError(t, db.Model(&models.DeferredJob{}).Where("id = ?", job.ID).
		Update("claimed_at", time.Now().Add(-time.Hour)).Error)
	require.NoError(t, store.ReclaimExpired(time.Now(), 5*time.Minute, 3))

	due, err = store.PollDue(time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, models.JobStatusPending, due[0].Status)
	require.Equal(t, 1, due[0].Attempts)
	require.Nil(t, due[0].ClaimedAt)
	require.Equal(t, "claim expired", due[0].LastError)
}

func TestReclaimExpiredHitsAttemptCap(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	job := newJob(1, 10, time.Now().Add(-time.Hour))
	_, _, err := store.Register(nil, job)
	require.NoError(t, err)

	won, err := store.Claim(job.ID)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, db.Model(&models.DeferredJob{}).Where("id = ?", job.ID).
		Update("claimed_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, store.ReclaimExpired(time.Now(), 5*time.Minute, 1))

	due, err := store.PollDue(time.Now())
	require.NoError(t, err)
	require.Empty(t, due)

	failed, err := store.ListFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, models.JobStatusFailed, failed[0].Status)
}

func TestCancelForPostDropsAllPostJobs(t *testing.T) {
	db := setupDB(t)
	store := NewJobStore(db)

	owner := seedUser(t, db, "owner", minutes(30))
	post := seedPost(t, db, owner)
	otherPost := seedPost(t, db, owner)

	c1 := models.Comment{PostID: post.ID, UserID: owner.ID, Content: "a"}
	c2 := models.Comment{PostID: post.ID, UserID: owner.ID, Content: "b"}
	c3 := models.Comment{PostID: otherPost.ID, UserID: owner.ID, Content: "c"}
	require.NoError(t, db.Create(&c1).Error)
	require.NoError(t, db.Create(&c2).Error)
	require.NoError(t, db.Create(&c3).Error)

	fireAt := time.Now().Add(time.Hour)
	for _, id := range []uint{c1.ID, c2.ID, c3.ID} {
		_, _, err := store.Register(nil, newJob(id, owner.ID, fireAt))
		require.NoError(t, err)
	}

	require.NoError(t, store.CancelForPost(nil, post.ID))

	var remaining []models.DeferredJob
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, c3.ID, remaining[0].CommentID)
}
