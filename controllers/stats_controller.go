package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/utils"
)

// StatsController provides dashboard counters for the admin.
type StatsController struct {
	posts      *repository.PostRepository
	comments   *repository.CommentRepository
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	pageviews  *repository.PageViewRepository
	logger     *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(
	posts *repository.PostRepository,
	comments *repository.CommentRepository,
	categories *repository.CategoryRepository,
	tags *repository.TagRepository,
	pageviews *repository.PageViewRepository,
	logger *zap.Logger,
) *StatsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsController{
		posts:      posts,
		comments:   comments,
		categories: categories,
		tags:       tags,
		pageviews:  pageviews,
		logger:     logger,
	}
}

const recentItems = 5

// GetStats returns aggregate counts and the latest activity. A failing counter reports 0 instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	c := ctx.Request.Context()
	published := models.PostPublished
	drafts := models.PostDraft
	pending := models.CommentPending
	approved := models.CommentApproved

	count := func(name string, fn func() (int64, error)) int64 {
		n, err := fn()
		if err != nil {
			s.logger.Warn("stats counter failed", zap.String("counter", name), zap.Error(err))
			return 0
		}
		return n
	}

	recentPosts, err := s.posts.List(c, recentItems)
	if err != nil {
		s.logger.Warn("stats recent posts failed", zap.Error(err))
		recentPosts = []models.Post{}
	}
	recentComments, _, err := s.comments.ListForModeration(c, repository.CommentFilter{
		Page: repository.Page{Page: 1, Limit: recentItems},
	})
	if err != nil {
		s.logger.Warn("stats recent comments failed", zap.Error(err))
		recentComments = []models.ModerationComment{}
	}

	utils.Success(ctx, gin.H{
		"recent_posts":           recentPosts,
		"recent_comments":        recentComments,
		"post_count":             count("posts", func() (int64, error) { return s.posts.Count(c, nil) }),
		"published_count":        count("published", func() (int64, error) { return s.posts.Count(c, &published) }),
		"draft_count":            count("drafts", func() (int64, error) { return s.posts.Count(c, &drafts) }),
		"comment_count":          count("comments", func() (int64, error) { return s.comments.Count(c, nil) }),
		"pending_comment_count":  count("pending", func() (int64, error) { return s.comments.Count(c, &pending) }),
		"approved_comment_count": count("approved", func() (int64, error) { return s.comments.Count(c, &approved) }),
		"category_count":         count("categories", func() (int64, error) { return s.categories.Count(c) }),
		"tag_count":              count("tags", func() (int64, error) { return s.tags.Count(c) }),
		"today_pv":               count("pv", func() (int64, error) { return s.pageviews.SumForDay(c, time.Now()) }),
	})
}
