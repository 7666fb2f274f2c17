package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkwell/middleware"
)

func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page := 1
	pageSize := defaultSize
	if p, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(strings.TrimSpace(sizeStr)); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func pagination(page, limit int, total int64) gin.H {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	}
}

// idsRequest is the body of batch endpoints.
type idsRequest struct {
	IDs []uint `json:"ids"`
}
