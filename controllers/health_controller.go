package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/inkwell/utils"
)

// HealthController reports liveness of the process and its database.
type HealthController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHealthController(db *gorm.DB, logger *zap.Logger) *HealthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthController{db: db, logger: logger}
}

func (h *HealthController) Health(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	var one int
	if err := h.db.WithContext(c).Raw("SELECT 1").Scan(&one).Error; err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		utils.Respond(ctx, http.StatusInternalServerError, 50060, "database unreachable", gin.H{
			"status":    "error",
			"timestamp": now,
			"database":  "disconnected",
		})
		return
	}
	utils.Success(ctx, gin.H{
		"status":    "ok",
		"timestamp": now,
		"database":  "connected",
	})
}
