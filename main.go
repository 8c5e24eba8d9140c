package main

import (
	"time"

	"github.com/xKuroiUsagix/ai-blog/config"
	"github.com/xKuroiUsagix/ai-blog/models"
	"github.com/xKuroiUsagix/ai-blog/routes"
	"github.com/xKuroiUsagix/ai-blog/services"
	"github.com/xKuroiUsagix/ai-blog/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentResponse{},
		&models.DeferredJob{},
	)

	oracle := services.NewOracleClient(services.OracleConfig{
		BaseURL: cfg.OracleBaseURL,
		Token:   cfg.OracleToken,
		Model:   cfg.OracleModel,
		Timeout: time.Duration(cfg.OracleTimeoutSeconds) * time.Second,
	})
	classifier := services.NewHTTPClassifier(oracle)
	responder := services.NewHTTPResponder(oracle, cfg.MaxReplyLength)

	store := services.NewJobStore(db)
	scheduler := services.NewAutoReplyScheduler(db, store)
	moderation := services.NewModerationService(db, classifier, scheduler, store)
	executor := services.NewAutoReplyExecutor(db, store, responder, cfg.MaxReplyLength, cfg.WorkerMaxAttempts)

	worker := services.NewWorker(store, executor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
	if err := worker.Start(); err != nil {
		utils.Sugar.Fatalf("failed to start auto-reply worker: %v", err)
	}
	defer worker.Stop()

	r := routes.SetupRouter(db, moderation, store)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
