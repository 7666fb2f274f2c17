package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/inkwell/config"
	"github.com/cppla/inkwell/controllers"
	"github.com/cppla/inkwell/middleware"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/services"
	"github.com/cppla/inkwell/utils"
)

// Deps are the long-lived collaborators built at boot.
type Deps struct {
	Config   config.AppConfig
	DB       *gorm.DB
	Pipeline *services.CommentPipeline
	Logger   *zap.Logger
	// AccessLog receives the gin access log; Logger is used when nil.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.Gin.Mode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	accessLog := d.AccessLog
	if accessLog == nil {
		accessLog = logger
	}

	r := gin.New()
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	pageviews := repository.NewPageViewRepository(d.DB)
	r.Use(middleware.ClientIdentifier(cfg.App.ClientHashSecret))
	r.Use(middleware.PageViewRecorder(pageviews))

	postRepo := repository.NewPostRepository(d.DB)
	commentRepo := repository.NewCommentRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	tagRepo := repository.NewTagRepository(d.DB)
	settingsRepo := repository.NewSettingsRepository(d.DB)

	postService := services.NewPostService(postRepo, repository.NewTaxonomy(categoryRepo, tagRepo), logger)
	moderationService := services.NewModerationService(commentRepo, logger, services.WithMasking(d.Pipeline.Classifier()))

	authController := controllers.NewAuthController(d.DB, cfg, logger)
	postController := controllers.NewPostController(postRepo, postService, logger)
	commentController := controllers.NewCommentController(d.Pipeline, moderationService, logger)
	taxonomyController := controllers.NewTaxonomyController(categoryRepo, tagRepo, logger)
	settingsController := controllers.NewSettingsController(settingsRepo, logger)
	statsController := controllers.NewStatsController(postRepo, commentRepo, categoryRepo, tagRepo, pageviews, logger)
	uploadController := controllers.NewUploadController(d.DB, cfg.Upload.Dir, cfg.Upload.MaxBytes, logger)
	feedController := controllers.NewFeedController(postRepo, categoryRepo, tagRepo, settingsController, cfg.App.BaseURL, logger)
	healthController := controllers.NewHealthController(d.DB, logger)

	throttle := middleware.NewTokenBucket(cfg.App.RateLimitPerMinute)

	r.Static(controllers.UploadURLPrefix, cfg.Upload.Dir)
	r.GET("/feed.xml", feedController.RSS)
	r.GET("/sitemap.xml", feedController.Sitemap)

	r.GET("/api/health", healthController.Health)

	api := r.Group("/api/v1")
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:slug", postController.GetPost)
	api.GET("/search/posts", postController.SearchPosts)
	api.GET("/categories", taxonomyController.ListCategories)
	api.GET("/tags", taxonomyController.ListTags)
	api.GET("/settings", settingsController.GetSettings)
	api.GET("/comments", commentController.ListApproved)
	api.POST("/comments", commentController.Submit)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/login", throttle.Middleware(), authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), throttle.Middleware())

	admin.GET("/posts", postController.AdminListPosts)
	admin.POST("/posts", postController.CreatePost)
	admin.GET("/posts/:id", postController.AdminGetPost)
	admin.PUT("/posts/:id", postController.UpdatePost)
	admin.DELETE("/posts/:id", postController.DeletePost)

	admin.GET("/comments", commentController.AdminList)
	admin.PATCH("/comments", commentController.AdminBatch)
	admin.PATCH("/comments/:id", commentController.AdminUpdate)
	admin.DELETE("/comments/:id", commentController.AdminDelete)

	admin.GET("/categories", taxonomyController.ListCategories)
	admin.POST("/categories", taxonomyController.CreateCategory)
	admin.DELETE("/categories", taxonomyController.DeleteCategories)
	admin.GET("/categories/:id", taxonomyController.GetCategory)
	admin.PUT("/categories/:id", taxonomyController.UpdateCategory)
	admin.DELETE("/categories/:id", taxonomyController.DeleteCategory)
	admin.GET("/tags", taxonomyController.ListTags)
	admin.POST("/tags", taxonomyController.CreateTag)
	admin.DELETE("/tags", taxonomyController.DeleteTags)
	admin.GET("/tags/:id", taxonomyController.GetTag)
	admin.PUT("/tags/:id", taxonomyController.UpdateTag)
	admin.DELETE("/tags/:id", taxonomyController.DeleteTag)

	admin.GET("/settings", settingsController.GetSettings)
	admin.PUT("/settings", settingsController.UpdateSettings)
	admin.GET("/stats", statsController.GetStats)
	admin.POST("/upload", uploadController.Upload)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
