package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/utils"
)

// TaxonomyController manages categories and tags.
type TaxonomyController struct {
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	logger     *zap.Logger
}

func NewTaxonomyController(categories *repository.CategoryRepository, tags *repository.TagRepository, logger *zap.Logger) *TaxonomyController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyController{categories: categories, tags: tags, logger: logger}
}

func (t *TaxonomyController) ListCategories(ctx *gin.Context) {
	items, err := t.categories.ListWithCounts(ctx.Request.Context())
	if err != nil {
		t.logger.Error("list categories failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list categories")
		return
	}
	utils.Success(ctx, items)
}

func (t *TaxonomyController) ListTags(ctx *gin.Context) {
	items, err := t.tags.ListWithCounts(ctx.Request.Context())
	if err != nil {
		t.logger.Error("list tags failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list tags")
		return
	}
	utils.Success(ctx, items)
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Slug        string `json:"slug" binding:"required,max=50"`
	Description string `json:"description" binding:"max=500"`
}

type tagRequest struct {
	Name string `json:"name" binding:"required,max=30"`
	Slug string `json:"slug" binding:"required,max=30"`
}

// bindCategory decodes and trims a category body, writing the error response itself.
func bindCategory(ctx *gin.Context) (models.Category, bool) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40040, "MISSING_FIELDS", "name and slug are required", nil)
		return models.Category{}, false
	}
	c := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        strings.TrimSpace(req.Slug),
		Description: strings.TrimSpace(req.Description),
	}
	if c.Name == "" || c.Slug == "" {
		utils.Reject(ctx, http.StatusBadRequest, 40040, "MISSING_FIELDS", "name and slug are required", nil)
		return models.Category{}, false
	}
	return c, true
}

func bindTag(ctx *gin.Context) (models.Tag, bool) {
	var req tagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40040, "MISSING_FIELDS", "name and slug are required", nil)
		return models.Tag{}, false
	}
	tag := models.Tag{Name: strings.TrimSpace(req.Name), Slug: strings.TrimSpace(req.Slug)}
	if tag.Name == "" || tag.Slug == "" {
		utils.Reject(ctx, http.StatusBadRequest, 40040, "MISSING_FIELDS", "name and slug are required", nil)
		return models.Tag{}, false
	}
	return tag, true
}

// CreateCategory adds a category with a unique slug.
func (t *TaxonomyController) CreateCategory(ctx *gin.Context) {
	c, ok := bindCategory(ctx)
	if !ok {
		return
	}
	taken, err := t.categories.SlugTaken(ctx.Request.Context(), c.Slug)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create category")
		return
	}
	if taken {
		utils.Reject(ctx, http.StatusBadRequest, 40041, "SLUG_EXISTS", "slug already exists", nil)
		return
	}
	if err := t.categories.Create(ctx.Request.Context(), &c); err != nil {
		t.logger.Error("create category failed", zap.String("slug", c.Slug), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create category")
		return
	}
	utils.SuccessMessage(ctx, "category created", c)
}

// CreateTag adds a tag with a unique slug.
func (t *TaxonomyController) CreateTag(ctx *gin.Context) {
	tag, ok := bindTag(ctx)
	if !ok {
		return
	}
	taken, err := t.tags.SlugTaken(ctx.Request.Context(), tag.Slug)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create tag")
		return
	}
	if taken {
		utils.Reject(ctx, http.StatusBadRequest, 40041, "SLUG_EXISTS", "slug already exists", nil)
		return
	}
	if err := t.tags.Create(ctx.Request.Context(), &tag); err != nil {
		t.logger.Error("create tag failed", zap.String("slug", tag.Slug), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create tag")
		return
	}
	utils.SuccessMessage(ctx, "tag created", tag)
}

// DeleteCategories removes unused categories. Nothing is deleted when any is still linked.
func (t *TaxonomyController) DeleteCategories(ctx *gin.Context) {
	ids, ok := bindIDs(ctx)
	if !ok {
		return
	}
	inUse, err := t.categories.InUse(ctx.Request.Context(), ids)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete categories")
		return
	}
	if inUse {
		utils.Reject(ctx, http.StatusBadRequest, 40042, "CATEGORY_IN_USE", "category is still used by posts", nil)
		return
	}
	n, err := t.categories.BatchDelete(ctx.Request.Context(), ids)
	if err != nil {
		t.logger.Error("delete categories failed", zap.Uints("ids", ids), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete categories")
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "categories deleted", gin.H{"affected": n})
}

// DeleteTags removes unused tags. Nothing is deleted when any is still linked.
func (t *TaxonomyController) DeleteTags(ctx *gin.Context) {
	ids, ok := bindIDs(ctx)
	if !ok {
		return
	}
	inUse, err := t.tags.InUse(ctx.Request.Context(), ids)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete tags")
		return
	}
	if inUse {
		utils.Reject(ctx, http.StatusBadRequest, 40043, "TAG_IN_USE", "tag is still used by posts", nil)
		return
	}
	n, err := t.tags.BatchDelete(ctx.Request.Context(), ids)
	if err != nil {
		t.logger.Error("delete tags failed", zap.Uints("ids", ids), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete tags")
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "tags deleted", gin.H{"affected": n})
}

// GetCategory returns one category with all of its posts, drafts included.
func (t *TaxonomyController) GetCategory(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	detail, err := t.categories.Get(ctx.Request.Context(), id)
	if repository.IsNotFound(err) {
		utils.Reject(ctx, http.StatusNotFound, 40440, "NOT_FOUND", "category not found", nil)
		return
	}
	if err != nil {
		t.logger.Error("get category failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to load category")
		return
	}
	utils.Success(ctx, detail)
}

// UpdateCategory renames a category. The slug must stay unique among the others.
func (t *TaxonomyController) UpdateCategory(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	c, ok := bindCategory(ctx)
	if !ok {
		return
	}
	taken, err := t.categories.SlugTakenByOther(ctx.Request.Context(), c.Slug, id)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to update category")
		return
	}
	if taken {
		utils.Reject(ctx, http.StatusBadRequest, 40041, "SLUG_EXISTS", "slug is used by another category", nil)
		return
	}
	c.ID = id
	err = t.categories.Update(ctx.Request.Context(), &c)
	if repository.IsNotFound(err) {
		utils.Reject(ctx, http.StatusNotFound, 40440, "NOT_FOUND", "category not found", nil)
		return
	}
	if err != nil {
		t.logger.Error("update category failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to update category")
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "category updated", c)
}

// DeleteCategory removes one category that no post uses.
func (t *TaxonomyController) DeleteCategory(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	ids := []uint{id}
	inUse, err := t.categories.InUse(ctx.Request.Context(), ids)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete category")
		return
	}
	if inUse {
		utils.Reject(ctx, http.StatusBadRequest, 40042, "CATEGORY_IN_USE", "category is still used by posts", nil)
		return
	}
	n, err := t.categories.BatchDelete(ctx.Request.Context(), ids)
	if err != nil {
		t.logger.Error("delete category failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete category")
		return
	}
	if n == 0 {
		utils.Reject(ctx, http.StatusNotFound, 40440, "NOT_FOUND", "category not found", nil)
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "category deleted", nil)
}

// GetTag returns one tag with all of its posts, drafts included.
func (t *TaxonomyController) GetTag(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	detail, err := t.tags.Get(ctx.Request.Context(), id)
	if repository.IsNotFound(err) {
		utils.Reject(ctx, http.StatusNotFound, 40441, "NOT_FOUND", "tag not found", nil)
		return
	}
	if err != nil {
		t.logger.Error("get tag failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50048, "failed to load tag")
		return
	}
	utils.Success(ctx, detail)
}

func (t *TaxonomyController) UpdateTag(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	tag, ok := bindTag(ctx)
	if !ok {
		return
	}
	taken, err := t.tags.SlugTakenByOther(ctx.Request.Context(), tag.Slug, id)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50049, "failed to update tag")
		return
	}
	if taken {
		utils.Reject(ctx, http.StatusBadRequest, 40041, "SLUG_EXISTS", "slug is used by another tag", nil)
		return
	}
	tag.ID = id
	err = t.tags.Update(ctx.Request.Context(), &tag)
	if repository.IsNotFound(err) {
		utils.Reject(ctx, http.StatusNotFound, 40441, "NOT_FOUND", "tag not found", nil)
		return
	}
	if err != nil {
		t.logger.Error("update tag failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50049, "failed to update tag")
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "tag updated", tag)
}

func (t *TaxonomyController) DeleteTag(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	ids := []uint{id}
	inUse, err := t.tags.InUse(ctx.Request.Context(), ids)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete tag")
		return
	}
	if inUse {
		utils.Reject(ctx, http.StatusBadRequest, 40043, "TAG_IN_USE", "tag is still used by posts", nil)
		return
	}
	n, err := t.tags.BatchDelete(ctx.Request.Context(), ids)
	if err != nil {
		t.logger.Error("delete tag failed", zap.Uint("id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete tag")
		return
	}
	if n == 0 {
		utils.Reject(ctx, http.StatusNotFound, 40441, "NOT_FOUND", "tag not found", nil)
		return
	}
	utils.InvalidatePostCaches()
	utils.SuccessMessage(ctx, "tag deleted", nil)
}

// pathID reads the :id segment and writes the error response itself.
func pathID(ctx *gin.Context) (uint, bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Reject(ctx, http.StatusBadRequest, 40046, "INVALID_ID", "invalid id", nil)
		return 0, false
	}
	return id, true
}

// bindIDs reads {"ids": [...]} and writes the error response itself.
func bindIDs(ctx *gin.Context) ([]uint, bool) {
	var req idsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		utils.Reject(ctx, http.StatusBadRequest, 40044, "INVALID_INPUT", "select at least one item", nil)
		return nil, false
	}
	return utils.UniqueUint(req.IDs), true
}
