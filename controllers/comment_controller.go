package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/middleware"
	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/services"
	"github.com/cppla/inkwell/utils"
)

// CommentController exposes comment submission, the public listing and moderation.
type CommentController struct {
	pipeline   *services.CommentPipeline
	moderation *services.ModerationService
	logger     *zap.Logger
}

func NewCommentController(pipeline *services.CommentPipeline, moderation *services.ModerationService, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentController{pipeline: pipeline, moderation: moderation, logger: logger}
}

type submitCommentRequest struct {
	PostID  uint   `json:"postId"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	Content string `json:"content"`
}

// Submit accepts a visitor comment into the moderation queue. The attempt is counted
// against the client's quota before the body is read.
func (c *CommentController) Submit(ctx *gin.Context) {
	clientID := middleware.ClientID(ctx)
	if err := c.pipeline.Throttle(ctx.Request.Context(), clientID); err != nil {
		c.writeRejection(ctx, err)
		return
	}

	var req submitCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40010, string(services.CodeValidationError), "invalid request payload", nil)
		return
	}

	comment, err := c.pipeline.Accept(ctx.Request.Context(), services.SubmitInput{
		ClientID: clientID,
		PostID:   req.PostID,
		Author:   req.Author,
		Email:    req.Email,
		Content:  req.Content,
	})
	if err != nil {
		c.writeRejection(ctx, err)
		return
	}
	utils.SuccessMessage(ctx, "comment submitted, awaiting review", comment)
}

func (c *CommentController) writeRejection(ctx *gin.Context, err error) {
	var rej *services.Rejection
	if !errors.As(err, &rej) {
		c.logger.Error("comment submission failed", zap.Error(err))
		utils.Reject(ctx, http.StatusInternalServerError, 50010, string(services.CodeInternalError), "failed to submit comment, please try again later", nil)
		return
	}
	switch rej.Code {
	case services.CodeRateLimited:
		seconds := int(math.Ceil(rej.RetryAfter.Seconds()))
		ctx.Header("Retry-After", strconv.Itoa(seconds))
		utils.Reject(ctx, http.StatusTooManyRequests, 42910, string(rej.Code), rej.Message, gin.H{
			"remaining":   rej.Remaining,
			"retry_after": seconds,
		})
	case services.CodeValidationError:
		utils.Reject(ctx, http.StatusBadRequest, 40010, string(rej.Code), rej.Message, gin.H{"details": rej.Fields})
	case services.CodePostNotFound:
		utils.Reject(ctx, http.StatusNotFound, 40410, string(rej.Code), rej.Message, nil)
	case services.CodeContentRejected:
		utils.Reject(ctx, http.StatusBadRequest, 40011, string(rej.Code), rej.Message, nil)
	default:
		utils.Reject(ctx, http.StatusInternalServerError, 50010, string(services.CodeInternalError), rej.Message, nil)
	}
}

// ListApproved returns the visible comments of a post, newest first.
func (c *CommentController) ListApproved(ctx *gin.Context) {
	raw := strings.TrimSpace(ctx.Query("postId"))
	if raw == "" {
		utils.Reject(ctx, http.StatusBadRequest, 40012, "MISSING_POST_ID", "missing post id", nil)
		return
	}
	postID, ok := parseID(raw)
	if !ok {
		utils.Reject(ctx, http.StatusBadRequest, 40013, string(services.CodeValidationError), "invalid post id", nil)
		return
	}
	items, err := c.moderation.ListApproved(ctx.Request.Context(), postID)
	if err != nil {
		c.logger.Error("list approved comments failed", zap.Uint("post_id", postID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load comments")
		return
	}
	utils.Success(ctx, items)
}

// AdminList returns the moderation queue.
func (c *CommentController) AdminList(ctx *gin.Context) {
	var filter *models.CommentStatus
	if raw := strings.TrimSpace(ctx.Query("status")); raw != "" {
		st, err := models.ParseCommentStatus(strings.ToUpper(raw))
		if err != nil {
			utils.Reject(ctx, http.StatusBadRequest, 40014, "INVALID_STATUS", "invalid status", nil)
			return
		}
		filter = &st
	}
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"), 20)

	result, err := c.moderation.Queue(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		c.logger.Error("list moderation queue failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load comments")
		return
	}
	utils.Success(ctx, gin.H{
		"comments":   result.Items,
		"pagination": pagination(result.Page, result.Limit, result.Total),
	})
}

type batchCommentRequest struct {
	CommentIDs []uint `json:"commentIds"`
	Action     string `json:"action"`
}

// AdminBatch approves, rejects or deletes a selection of comments.
func (c *CommentController) AdminBatch(ctx *gin.Context) {
	var req batchCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40015, "INVALID_INPUT", "invalid request payload", nil)
		return
	}
	action, err := services.ParseBatchAction(req.Action)
	if err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40016, "INVALID_ACTION", "invalid action", nil)
		return
	}
	n, err := c.moderation.Apply(ctx.Request.Context(), req.CommentIDs, action)
	switch {
	case errors.Is(err, services.ErrEmptySelection):
		utils.Reject(ctx, http.StatusBadRequest, 40015, "INVALID_INPUT", "select at least one comment", nil)
		return
	case err != nil:
		c.logger.Error("batch comment operation failed", zap.String("action", req.Action), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50013, "operation failed")
		return
	}
	utils.SuccessMessage(ctx, actionMessage(action, n), gin.H{"affected": n})
}

func actionMessage(action services.BatchAction, n int64) string {
	verb := map[services.BatchAction]string{
		services.ActionApprove: "approved",
		services.ActionReject:  "rejected",
		services.ActionDelete:  "deleted",
	}[action]
	return verb + " " + strconv.FormatInt(n, 10) + " comment(s)"
}

// AdminUpdate sets the status of one comment.
func (c *CommentController) AdminUpdate(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40017, "invalid comment id")
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40014, "INVALID_STATUS", "invalid status", nil)
		return
	}
	status, err := models.ParseCommentStatus(req.Status)
	if err != nil {
		utils.Reject(ctx, http.StatusBadRequest, 40014, "INVALID_STATUS", "invalid status", nil)
		return
	}

	comment, err := c.moderation.SetStatus(ctx.Request.Context(), id, status)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		utils.Reject(ctx, http.StatusBadRequest, 40018, "INVALID_TRANSITION", "comments cannot be moved back to pending", nil)
		return
	case errors.Is(err, services.ErrCommentNotFound):
		utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
		return
	case err != nil:
		c.logger.Error("update comment status failed", zap.Uint("comment_id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to update comment")
		return
	}
	utils.SuccessMessage(ctx, "comment "+strings.ToLower(status.String()), comment)
}

// AdminDelete removes one comment.
func (c *CommentController) AdminDelete(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40017, "invalid comment id")
		return
	}
	err := c.moderation.Delete(ctx.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrCommentNotFound):
		utils.Error(ctx, http.StatusNotFound, 40411, "comment not found")
		return
	case err != nil:
		c.logger.Error("delete comment failed", zap.Uint("comment_id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to delete comment")
		return
	}
	utils.SuccessMessage(ctx, "comment deleted", nil)
}
