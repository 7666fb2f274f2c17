package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/moderation"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/utils"
)

// BatchAction is an administrator operation on a selection of comments.
type BatchAction string

const (
	ActionApprove BatchAction = "approve"
	ActionReject  BatchAction = "reject"
	ActionDelete  BatchAction = "delete"
)

func ParseBatchAction(s string) (BatchAction, error) {
	switch a := BatchAction(s); a {
	case ActionApprove, ActionReject, ActionDelete:
		return a, nil
	}
	return "", ErrInvalidAction
}

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// CommentPage is one page of the moderation queue.
type CommentPage struct {
	Items []models.ModerationComment `json:"comments"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
	Total int64                      `json:"total"`
	Pages int                        `json:"pages"`
}

// ModerationService applies administrator decisions to comments.
type ModerationService struct {
	store  CommentStore
	logger *zap.Logger
	mask   *moderation.Classifier
}

// ModerationOption customises a ModerationService.
type ModerationOption func(*ModerationService)

// WithMasking masks sensitive words in publicly listed comments. Words added to the
// denylist after a comment was approved stay hidden without re-moderation.
func WithMasking(c *moderation.Classifier) ModerationOption {
	return func(s *ModerationService) { s.mask = c }
}

func NewModerationService(store CommentStore, logger *zap.Logger, opts ...ModerationOption) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ModerationService{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetStatus moves one comment to APPROVED or REJECTED.
func (s *ModerationService) SetStatus(ctx context.Context, id uint, status models.CommentStatus) (*models.Comment, error) {
	if !status.Valid() || status == models.CommentPending {
		return nil, ErrInvalidTransition
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if !c.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}
	n, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrCommentNotFound
	}
	s.logger.Info("comment status changed", zap.Uint("comment_id", id), zap.Stringer("from", c.Status), zap.Stringer("to", status))
	c.Status = status
	return c, nil
}

// Apply runs action on the distinct ids and returns how many comments it touched.
// Ids that do not exist are ignored.
func (s *ModerationService) Apply(ctx context.Context, ids []uint, action BatchAction) (int64, error) {
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	var (
		n   int64
		err error
	)
	switch action {
	case ActionApprove:
		n, err = s.store.BatchUpdateStatus(ctx, ids, models.CommentApproved)
	case ActionReject:
		n, err = s.store.BatchUpdateStatus(ctx, ids, models.CommentRejected)
	case ActionDelete:
		n, err = s.store.BatchDelete(ctx, ids)
	default:
		return 0, ErrInvalidAction
	}
	if err != nil {
		return 0, err
	}
	s.logger.Info("comment batch applied", zap.String("action", string(action)), zap.Int("selected", len(ids)), zap.Int64("affected", n))
	return n, nil
}

func (s *ModerationService) Delete(ctx context.Context, id uint) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// Queue lists comments for the administrator, newest first, optionally by status.
func (s *ModerationService) Queue(ctx context.Context, status *models.CommentStatus, page, limit int) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultQueueLimit
	}
	if limit > maxQueueLimit {
		limit = maxQueueLimit
	}
	items, total, err := s.store.ListForModeration(ctx, repository.CommentFilter{
		Status: status,
		Page:   repository.Page{Page: page, Limit: limit},
	})
	if err != nil {
		return nil, err
	}
	return &CommentPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: repository.Pages(total, limit),
	}, nil
}

// ListApproved returns what visitors may see under a post.
func (s *ModerationService) ListApproved(ctx context.Context, postID uint) ([]models.PublicComment, error) {
	items, err := s.store.ListApproved(ctx, postID)
	if err != nil || s.mask == nil {
		return items, err
	}
	for i := range items {
		items[i].Author = s.mask.Mask(items[i].Author)
		items[i].Content = s.mask.Mask(items[i].Content)
	}
	return items, nil
}
