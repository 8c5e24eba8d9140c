package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xKuroiUsagix/ai-blog/models"
)

func TestSubmitCommentPublishesAndSchedules(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", minutes(60))
	visitor := seedUser(t, db, "visitor", nil)
	post := seedPost(t, db, owner)

	comment, result, err := moderation.SubmitComment(context.Background(), visitor.ID, post.ID, "nice post", nil)
	require.NoError(t, err)
	require.Equal(t, ResultPublished, result)
	require.False(t, comment.IsBlocked)
	require.NotNil(t, comment.PendingJobID)
	require.NotNil(t, comment.ScheduledReplyAt)

	job := jobForComment(t, db, comment.ID)
	require.Equal(t, models.JobKindAutoCommentResponse, job.Kind)
	require.Equal(t, owner.ID, job.UserID)
	require.WithinDuration(t, comment.CreatedAt.Add(60*time.Minute), job.FireAt, time.Second)
}

func TestSubmitCommentBlockedIsPersistedButHidden(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictBlocked})

	owner := seedUser(t, db, "owner", minutes(60))
	visitor := seedUser(t, db, "visitor", nil)
	post := seedPost(t, db, owner)

	comment, result, err := moderation.SubmitComment(context.Background(), visitor.ID, post.ID, "something nasty", nil)
	require.NoError(t, err)
	require.Equal(t, ResultBlocked, result)
	require.True(t, comment.IsBlocked)

	// The row survives for audit.
	var stored models.Comment
	require.NoError(t, db.First(&stored, comment.ID).Error)
	require.True(t, stored.IsBlocked)

	// But no read path exposes it.
	_, err = moderation.GetComment(context.Background(), comment.ID)
	require.ErrorIs(t, err, ErrContentBlocked)

	listed, err := moderation.ListPostComments(context.Background(), post.ID)
	require.NoError(t, err)
	require.Empty(t, listed)

	// And no auto-reply job was scheduled for it.
	var count int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSubmitCommentFailsClosedOnClassifierError(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{err: errors.New("oracle down")})

	owner := seedUser(t, db, "owner", minutes(60))
	post := seedPost(t, db, owner)

	comment, result, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "harmless text", nil)
	require.NoError(t, err)
	require.Equal(t, ResultBlocked, result)
	require.True(t, comment.IsBlocked)
}

func TestSubmitReplyRecordsLinkEvenWhenBlocked(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", nil)
	post := seedPost(t, db, owner)

	parent, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "parent", nil)
	require.NoError(t, err)

	blocked, _ := newEngine(db, stubClassifier{verdict: VerdictBlocked})
	reply, result, err := blocked.SubmitComment(context.Background(), owner.ID, post.ID, "nasty reply", &parent.ID)
	require.NoError(t, err)
	require.Equal(t, ResultBlocked, result)
	require.True(t, reply.IsResponse)

	var link models.CommentResponse
	require.NoError(t, db.First(&link, "comment_id = ? AND response_id = ?", parent.ID, reply.ID).Error)

	// Blocked replies never surface through the responses listing.
	responses, err := moderation.ListCommentResponses(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Empty(t, responses)
}

func TestSubmitCommentNoJobWhenOwnerOptedOut(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", nil)
	post := seedPost(t, db, owner)

	comment, result, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "hello", nil)
	require.NoError(t, err)
	require.Equal(t, ResultPublished, result)
	require.Nil(t, comment.PendingJobID)

	var count int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSubmitCommentUnknownPost(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	_, _, err := moderation.SubmitComment(context.Background(), 1, 999, "hello", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetCommentNotFoundVsBlocked(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	_, err := moderation.GetComment(context.Background(), 12345)
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrContentBlocked)
}

func TestListPostCommentsExcludesResponses(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", nil)
	post := seedPost(t, db, owner)

	parent, _, err := moderation.SubmitComment(context.Background(), owner.ID, post.ID, "top level", nil)
	require.NoError(t, err)
	_, _, err = moderation.SubmitComment(context.Background(), owner.ID, post.ID, "a reply", &parent.ID)
	require.NoError(t, err)

	listed, err := moderation.ListPostComments(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, parent.ID, listed[0].ID)
}

func TestDeleteCommentCancelsJobAndChecksOwnership(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", minutes(30))
	visitor := seedUser(t, db, "visitor", nil)
	stranger := seedUser(t, db, "stranger", nil)
	post := seedPost(t, db, owner)

	comment, _, err := moderation.SubmitComment(context.Background(), visitor.ID, post.ID, "hello", nil)
	require.NoError(t, err)
	require.NotNil(t, comment.PendingJobID)

	err = moderation.DeleteComment(context.Background(), comment.ID, stranger.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// The post author may delete any comment under the post.
	require.NoError(t, moderation.DeleteComment(context.Background(), comment.ID, owner.ID))

	var jobs int64
	require.NoError(t, db.Model(&models.DeferredJob{}).Count(&jobs).Error)
	require.EqualValues(t, 0, jobs)

	_, err = moderation.GetComment(context.Background(), comment.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostCascades(t *testing.T) {
	db := setupDB(t)
	moderation, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})

	owner := seedUser(t, db, "owner", minutes(30))
	visitor := seedUser(t, db, "visitor", nil)
	post := seedPost(t, db, owner)

	parent, _, err := moderation.SubmitComment(context.Background(), visitor.ID, post.ID, "hello", nil)
	require.NoError(t, err)
	_, _, err = moderation.SubmitComment(context.Background(), owner.ID, post.ID, "a reply", &parent.ID)
	require.NoError(t, err)

	require.NoError(t, moderation.DeletePost(context.Background(), post.ID))

	var comments, links, jobs, posts int64
	db.Model(&models.Comment{}).Count(&comments)
	db.Model(&models.CommentResponse{}).Count(&links)
	db.Model(&models.DeferredJob{}).Count(&jobs)
	db.Model(&models.Post{}).Count(&posts)
	require.EqualValues(t, 0, comments)
	require.EqualValues(t, 0, links)
	require.EqualValues(t, 0, jobs)
	require.EqualValues(t, 0, posts)
}

func TestVerifySafeFailsClosed(t *testing.T) {
	db := setupDB(t)

	healthy, _ := newEngine(db, stubClassifier{verdict: VerdictAllowed})
	require.True(t, healthy.VerifySafe(context.Background(), "fine"))

	broken, _ := newEngine(db, stubClassifier{err: errors.New("timeout")})
	require.False(t, broken.VerifySafe(context.Background(), "fine"))
}
