package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
	"github.com/xKuroiUsagix/ai-blog/services"
	"github.com/xKuroiUsagix/ai-blog/utils"
)

// CommentController is the HTTP surface over the moderation service. Every
// write goes through the safety screen; every read hides blocked content.
type CommentController struct {
	db         *gorm.DB
	moderation *services.ModerationService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB, moderation *services.ModerationService) *CommentController {
	return &CommentController{db: db, moderation: moderation}
}

// CreateComment submits a top-level comment on a post. A blocked verdict is
// returned as a rejection; the comment row is kept for audit either way.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	c.submit(ctx, nil)
}

// ReplyToComment submits a reply to an existing comment.
func (c *CommentController) ReplyToComment(ctx *gin.Context) {
	parentID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid comment id")
		return
	}

	var parent models.Comment
	if err := c.db.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40421, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comment")
		return
	}

	ctx.Params = append(ctx.Params, gin.Param{Key: "post_id", Value: strconv.Itoa(int(parent.PostID))})
	c.submit(ctx, &parentID)
}

func (c *CommentController) submit(ctx *gin.Context, inReplyTo *uint) {
	var req struct {
		Content string `json:"content" binding:"required,max=512"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40042, "content cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	paramKey := "id"
	if inReplyTo != nil {
		paramKey = "post_id"
	}
	postID, ok := parseUintParam(ctx, paramKey)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid post id")
		return
	}

	comment, result, err := c.moderation.SubmitComment(ctx.Request.Context(), userID, postID, content, inReplyTo)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create comment")
		return
	}

	if result == services.ResultBlocked {
		// The id is still reported so the rejection is traceable.
		utils.Respond(ctx, http.StatusBadRequest, 40044, services.HarmfulContentError,
			gin.H{"comment_id": comment.ID})
		return
	}

	if err := c.db.Preload("User").First(comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load comment")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(comment.PostID)))

	utils.Success(ctx, gin.H{"comment": comment})
}

// GetComment returns a single comment by id. Blocked comments are rejected
// with a dedicated code, distinct from not-found.
func (c *CommentController) GetComment(ctx *gin.Context) {
	commentID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid comment id")
		return
	}

	comment, err := c.moderation.GetComment(ctx.Request.Context(), commentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
		case errors.Is(err, services.ErrContentBlocked):
			utils.Error(ctx, http.StatusForbidden, 40330, services.BlockedCommentError)
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load comment")
		}
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// ListPostComments returns the public comments of a post: blocked comments
// and responses are excluded.
func (c *CommentController) ListPostComments(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40046, "invalid post id")
		return
	}

	comments, err := c.moderation.ListPostComments(ctx.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{"items": comments})
}

// ListResponses returns the replies linked to a comment.
func (c *CommentController) ListResponses(ctx *gin.Context) {
	commentID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40047, "invalid comment id")
		return
	}

	responses, err := c.moderation.ListCommentResponses(ctx.Request.Context(), commentID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to list responses")
		return
	}

	utils.Success(ctx, gin.H{"items": responses})
}

// DeleteComment allows the comment author or the post author to delete a
// comment. Pending auto-reply jobs are cancelled eagerly.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40048, "invalid comment id")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	if err := c.moderation.DeleteComment(ctx.Request.Context(), commentID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
		case errors.Is(err, services.ErrForbidden):
			utils.Error(ctx, http.StatusForbidden, 40320, "you are not the author of the post nor the author of the comment")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to delete comment")
		}
		return
	}

	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func parseUintParam(ctx *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(key))
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
