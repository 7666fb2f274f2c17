package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/inkwell/config"
	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/moderation"
	"github.com/cppla/inkwell/ratelimit"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/routes"
	"github.com/cppla/inkwell/services"
	"github.com/cppla/inkwell/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()
	logger := utils.Logger

	db, err := config.InitDatabase(cfg, models.All()...)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	rdb, err := utils.InitRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" && rdb != nil {
		limiter = ratelimit.NewRedisFixedWindow(rdb)
		logger.Info("comment rate limiting backed by redis")
	} else {
		if cfg.RateLimit.Backend == "redis" {
			logger.Warn("ratelimit.backend is redis but redis is not available, using memory")
		}
		memory := ratelimit.NewFixedWindow()
		ratelimit.StartJanitor(ctx, memory, cfg.RateLimit.SweepInterval, logger)
		limiter = memory
	}
	ratelimit.StartJanitor(ctx, ratelimit.SweeperFunc(utils.PurgeExpiredTokens), cfg.RateLimit.SweepInterval, logger)

	opts := []services.PipelineOption{
		services.WithLimits(cfg.Comment.Window, cfg.Comment.MaxRequests),
	}
	if mailer := utils.NewMailer(cfg.SMTP); mailer.Enabled() && cfg.Admin.NotifyEmail != "" {
		opts = append(opts, services.WithNotifier(services.NewMailNotifier(mailer, cfg.Admin.NotifyEmail, cfg.App.BaseURL, logger)))
	}
	pipeline := services.NewCommentPipeline(
		limiter,
		moderation.NewClassifier(cfg.Moderation.ExtraWords...),
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		logger,
		opts...,
	)

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		DB:        db,
		Pipeline:  pipeline,
		Logger:    logger,
		AccessLog: utils.NewFileLogger(cfg.Gin.LogPath, cfg.Log),
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.App.Port)
	if err := utils.GraceServer(":"+cfg.App.Port, r, cancel); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
