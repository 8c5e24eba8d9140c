package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xKuroiUsagix/ai-blog/models"
)

func TestWorkerTickExecutesDueJobs(t *testing.T) {
	db := setupDB(t)
	moderation, store := newEngine(db, stubClassifier{verdict: VerdictAllowed})
	gen := &stubGenerator{reply: "auto reply"}
	executor := NewAutoReplyExecutor(db, store, gen, 256, 3)
	worker := NewWorker(store, executor, time.Second)

	owner := seedUser(t, db, "owner", minutes(5))
	post := seedPost(t, db, owner)

	comment, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "hi", nil)
	require.NoError(t, err)

	// Bring the job's fire time into the past, then poll once.
	job := jobForComment(t, db, comment.ID)
	require.NoError(t, db.Model(&models.DeferredJob{}).Where("id = ?", job.ID).
		Update("fire_at", time.Now().Add(-time.Minute)).Error)

	worker.tick()

	require.Eventually(t, func() bool {
		var count int64
		if err := db.Model(&models.DeferredJob{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 0
	}, 3*time.Second, 20*time.Millisecond)

	responses, err := moderation.ListCommentResponses(context.Background(), comment.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Equal(t, "auto reply", responses[0].Content)
}

func TestWorkerStopDrainsInflightExecutions(t *testing.T) {
	db := setupDB(t)
	moderation, store := newEngine(db, stubClassifier{verdict: VerdictAllowed})
	gen := &stubGenerator{reply: "auto reply", delay: 100 * time.Millisecond}
	executor := NewAutoReplyExecutor(db, store, gen, 256, 3)
	worker := NewWorker(store, executor, time.Second)

	owner := seedUser(t, db, "owner", minutes(5))
	post := seedPost(t, db, owner)

	comment, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "hi", nil)
	require.NoError(t, err)
	job := jobForComment(t, db, comment.ID)
	require.NoError(t, db.Model(&models.DeferredJob{}).Where("id = ?", job.ID).
		Update("fire_at", time.Now().Add(-time.Minute)).Error)

	worker.tick()
	worker.Stop()

	// Stop returned only after the slow in-flight execution finished.
	responses, err := moderation.ListCommentResponses(context.Background(), comment.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Equal(t, "auto reply", responses[0].Content)
}

func TestWorkerTickReclaimsExpiredClaims(t *testing.T) {
	db := setupDB(t)
	moderation, store := newEngine(db, stubClassifier{verdict: VerdictAllowed})
	gen := &stubGenerator{reply: "auto reply"}
	executor := NewAutoReplyExecutor(db, store, gen, 256, 3)
	worker := NewWorker(store, executor, time.Second)
	worker.claimTTL = time.Minute

	owner := seedUser(t, db, "owner", minutes(5))
	post := seedPost(t, db, owner)

	comment, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "hi", nil)
	require.NoError(t, err)
	job := jobForComment(t, db, comment.ID)

	// Simulate a worker that died mid-claim: claimed long ago, never
	// completed.
	staleClaim := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.DeferredJob{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":     models.JobStatusClaimed,
			"claimed_at": staleClaim,
			"fire_at":    time.Now().Add(-time.Hour),
		}).Error)

	worker.tick()
	worker.Stop()

	responses, err := moderation.ListCommentResponses(context.Background(), comment.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	var jobs int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&jobs).Error)
	require.EqualValues(t, 0, jobs)
}

func TestWorkerTickSkipsFutureJobs(t *testing.T) {
	db := setupDB(t)
	moderation, store := newEngine(db, stubClassifier{verdict: VerdictAllowed})
	gen := &stubGenerator{reply: "auto reply"}
	executor := NewAutoReplyExecutor(db, store, gen, 256, 3)
	worker := NewWorker(store, executor, time.Second)

	owner := seedUser(t, db, "owner", minutes(60))
	post := seedPost(t, db, owner)

	comment, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "hi", nil)
	require.NoError(t, err)

	worker.tick()
	time.Sleep(50 * time.Millisecond)

	require.Zero(t, gen.calls)
	job := jobForComment(t, db, comment.ID)
	require.Equal(t, models.JobStatusPending, job.Status)
}
