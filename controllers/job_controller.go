package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xKuroiUsagix/ai-blog/services"
	"github.com/xKuroiUsagix/ai-blog/utils"
)

// JobController exposes the deferred job queue to administrators.
type JobController struct {
	store *services.JobStore
}

// NewJobController creates a new JobController instance.
func NewJobController(store *services.JobStore) *JobController {
	return &JobController{store: store}
}

// ListFailedJobs returns jobs that exhausted their retries. Failed jobs are
// retained for inspection instead of being deleted.
func (j *JobController) ListFailedJobs(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40350, "admin access required")
		return
	}

	jobs, err := j.store.ListFailed()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to list jobs")
		return
	}

	utils.Success(ctx, gin.H{"items": jobs})
}
