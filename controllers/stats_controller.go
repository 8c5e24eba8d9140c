package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/xKuroiUsagix/ai-blog/models"
	"github.com/xKuroiUsagix/ai-blog/utils"
)

// StatsController exposes aggregate moderation and activity counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// DailyCommentRow is one day of comment activity.
type DailyCommentRow struct {
	Day             string `json:"day"`
	TotalComments   int64  `json:"total_comments"`
	BlockedComments int64  `json:"blocked_comments"`
}

// GetStats returns site-wide counters: users, posts, comments, how many
// comments were blocked and how many replies were machine generated.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, blockedCount, aiReplyCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load statistics")
		return
	}
	s.db.Model(&models.Post{}).Count(&postCount)
	s.db.Model(&models.Comment{}).Count(&commentCount)
	s.db.Model(&models.Comment{}).Where("is_blocked = ?", true).Count(&blockedCount)
	s.db.Model(&models.Comment{}).Where("generated_by_ai = ?", true).Count(&aiReplyCount)

	utils.Success(ctx, gin.H{
		"users":       userCount,
		"posts":       postCount,
		"comments":    commentCount,
		"blocked":     blockedCount,
		"ai_replies":  aiReplyCount,
		"server_time": time.Now().UTC(),
	})
}

// GetDailyCommentStats returns per-day comment counts for a date range.
// Defaults to the last seven days. Pass ai=true to count only machine
// generated replies.
func (s *StatsController) GetDailyCommentStats(ctx *gin.Context) {
	const layout = "2006-01-02"

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -6).Format(layout)
	to := now.Format(layout)

	if raw := ctx.Query("from"); raw != "" {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40070, "from must be formatted as YYYY-MM-DD")
			return
		}
		from = parsed.Format(layout)
	}
	if raw := ctx.Query("to"); raw != "" {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40071, "to must be formatted as YYYY-MM-DD")
			return
		}
		to = parsed.Format(layout)
	}
	if from > to {
		utils.Error(ctx, http.StatusBadRequest, 40072, "from must not be after to")
		return
	}

	query := s.db.Model(&models.Comment{}).
		Select("CAST(DATE(created_at) AS CHAR) AS day, " +
			"COUNT(*) AS total_comments, " +
			"SUM(CASE WHEN is_blocked THEN 1 ELSE 0 END) AS blocked_comments").
		Where("DATE(created_at) BETWEEN ? AND ?", from, to).
		Group("DATE(created_at)").
		Order("day ASC")

	if ctx.Query("ai") == "true" {
		query = query.Where("generated_by_ai = ?", true)
	}

	var rows []DailyCommentRow
	if err := query.Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load statistics")
		return
	}

	type dailyOut struct {
		Day               string `json:"day"`
		TotalComments     int64  `json:"total_comments"`
		BlockedComments   int64  `json:"blocked_comments"`
		PublishedComments int64  `json:"published_comments"`
	}
	out := make([]dailyOut, 0, len(rows))
	for _, r := range rows {
		out = append(out, dailyOut{
			Day:               r.Day,
			TotalComments:     r.TotalComments,
			BlockedComments:   r.BlockedComments,
			PublishedComments: r.TotalComments - r.BlockedComments,
		})
	}

	utils.Success(ctx, gin.H{"from": from, "to": to, "items": out})
}
