package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/services"
	"github.com/cppla/inkwell/utils"
)

const adminPostListLimit = 50

// PostController serves published posts to visitors and post management to the admin.
type PostController struct {
	posts   *repository.PostRepository
	service *services.PostService
	logger  *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *repository.PostRepository, service *services.PostService, logger *zap.Logger) *PostController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostController{posts: posts, service: service, logger: logger}
}

// ListPosts returns a page of published posts, optionally filtered by category or tag slug
// and a free-text query.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"), 10)
	category := strings.TrimSpace(ctx.Query("category"))
	tag := strings.TrimSpace(ctx.Query("tag"))
	q := strings.TrimSpace(ctx.Query("q"))

	// Searches are not cached to avoid key explosion.
	cacheKey := ""
	if q == "" {
		cacheKey = fmt.Sprintf("%scat=%s:tag=%s:page=%d:size=%d", utils.CachePrefixPostList, category, tag, page, limit)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	posts, total, err := p.posts.ListPublished(ctx.Request.Context(), repository.PostFilter{
		Category: category,
		Tag:      tag,
		Query:    q,
		Page:     repository.Page{Page: page, Limit: limit},
	})
	if err != nil {
		p.logger.Error("list posts failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	payload := gin.H{
		"posts":      posts,
		"pagination": pagination(page, limit, total),
	}
	if cacheKey != "" {
		utils.CacheSuccess(cacheKey, payload, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns one published post by slug.
func (p *PostController) GetPost(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "missing slug")
		return
	}
	cacheKey := utils.CachePrefixPostDetail + slug
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	post, err := p.posts.GetPublishedBySlug(ctx.Request.Context(), slug)
	if err != nil {
		if repository.IsNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		p.logger.Error("get post failed", zap.String("slug", slug), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to get post")
		return
	}

	utils.CacheSuccess(cacheKey, post, time.Hour)
	utils.Success(ctx, post)
}

// SearchPosts returns every published post without bodies; clients filter locally.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	cacheKey := utils.CachePrefixPostList + "search-index"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}
	items, err := p.posts.PublishedSummaries(ctx.Request.Context())
	if err != nil {
		p.logger.Error("load search index failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50024, "search failed")
		return
	}
	utils.CacheSuccess(cacheKey, items, time.Hour)
	utils.Success(ctx, items)
}

// AdminListPosts returns recent posts in every state.
func (p *PostController) AdminListPosts(ctx *gin.Context) {
	posts, err := p.posts.List(ctx.Request.Context(), adminPostListLimit)
	if err != nil {
		p.logger.Error("admin list posts failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": posts})
}

// AdminGetPost returns a post in any state, including its markdown source.
func (p *PostController) AdminGetPost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid post id")
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to get post")
		return
	}
	utils.Success(ctx, post)
}

type postRequest struct {
	Title       *string            `json:"title"`
	Slug        *string            `json:"slug"`
	Summary     *string            `json:"summary"`
	Content     *string            `json:"content"`
	CoverURL    *string            `json:"cover_url"`
	Status      *models.PostStatus `json:"status"`
	CategoryIDs []uint             `json:"category_ids"`
	TagIDs      []uint             `json:"tag_ids"`
}

func (r postRequest) input() services.PostInput {
	in := services.PostInput{
		Title:     r.Title,
		Slug:      r.Slug,
		Summary:   r.Summary,
		ContentMD: r.Content,
		CoverURL:  r.CoverURL,
		Status:    r.Status,
	}
	if r.CategoryIDs != nil {
		in.CategoryIDs = utils.UniqueUint(r.CategoryIDs)
	}
	if r.TagIDs != nil {
		in.TagIDs = utils.UniqueUint(r.TagIDs)
	}
	return in
}

// CreatePost stores a new draft.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.service.Create(ctx.Request.Context(), req.input())
	if err != nil {
		p.writePostError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "post created", post)
}

// UpdatePost applies a partial edit.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid post id")
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.service.Update(ctx.Request.Context(), id, req.input())
	if err != nil {
		p.writePostError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "post updated", post)
}

// DeletePost removes a post. Its comments stay in the database.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid post id")
		return
	}
	if err := p.service.Delete(ctx.Request.Context(), id); err != nil {
		p.writePostError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "post deleted", nil)
}

func (p *PostController) writePostError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingFields):
		utils.Reject(ctx, http.StatusBadRequest, 40021, "MISSING_FIELDS", err.Error(), nil)
	case errors.Is(err, services.ErrSlugExists):
		utils.Reject(ctx, http.StatusBadRequest, 40026, "SLUG_EXISTS", err.Error(), nil)
	case errors.Is(err, services.ErrPostNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
	default:
		p.logger.Error("post write failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to save post")
	}
}
