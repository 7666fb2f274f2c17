package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/utils"
)

const siteSettingsKey = "site"

// SettingsStore is the keyed blob store behind site settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// SettingsController exposes the site settings.
type SettingsController struct {
	store  SettingsStore
	logger *zap.Logger
}

func NewSettingsController(store SettingsStore, logger *zap.Logger) *SettingsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsController{store: store, logger: logger}
}

// Load returns stored settings, falling back to defaults when none are saved.
func (s *SettingsController) Load(ctx context.Context) (models.SiteSettings, error) {
	out := models.DefaultSiteSettings()
	raw, err := s.store.Get(ctx, siteSettingsKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return out, nil
		}
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("stored site settings are malformed, serving defaults", zap.Error(err))
		return models.DefaultSiteSettings(), nil
	}
	return out, nil
}

// GetSettings returns the site settings.
func (s *SettingsController) GetSettings(ctx *gin.Context) {
	settings, err := s.Load(ctx.Request.Context())
	if err != nil {
		s.logger.Error("load settings failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load settings")
		return
	}
	utils.Success(ctx, settings)
}

// UpdateSettings replaces the site settings.
func (s *SettingsController) UpdateSettings(ctx *gin.Context) {
	var req struct {
		Title        string `json:"title" binding:"required,max=100"`
		Description  string `json:"description" binding:"max=500"`
		Keywords     string `json:"keywords" binding:"max=200"`
		Author       string `json:"author" binding:"max=50"`
		BaseURL      string `json:"base_url" binding:"omitempty,url"`
		AboutContent string `json:"about_content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40050, "INVALID_INPUT", "invalid settings", nil)
		return
	}
	settings := models.SiteSettings{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Keywords:     strings.TrimSpace(req.Keywords),
		Author:       strings.TrimSpace(req.Author),
		BaseURL:      strings.TrimRight(strings.TrimSpace(req.BaseURL), "/"),
		AboutContent: req.AboutContent,
	}
	if settings.Title == "" {
		utils.Reject(ctx, http.StatusBadRequest, 40050, "INVALID_INPUT", "title is required", nil)
		return
	}
	b, err := json.Marshal(settings)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to save settings")
		return
	}
	if err := s.store.Put(ctx.Request.Context(), siteSettingsKey, string(b)); err != nil {
		s.logger.Error("save settings failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to save settings")
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixFeed)
	utils.SuccessMessage(ctx, "settings saved", settings)
}
