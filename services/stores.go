package services

import (
	"context"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
)

// PostLookup answers whether a post can receive comments.
type PostLookup interface {
	PublishedPostExists(ctx context.Context, id uint) (bool, error)
}

// CommentStore is the persistence the comment flows need.
type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	Get(ctx context.Context, id uint) (*models.Comment, error)
	UpdateStatus(ctx context.Context, id uint, status models.CommentStatus) (int64, error)
	BatchUpdateStatus(ctx context.Context, ids []uint, status models.CommentStatus) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
	BatchDelete(ctx context.Context, ids []uint) (int64, error)
	ListApproved(ctx context.Context, postID uint) ([]models.PublicComment, error)
	ListForModeration(ctx context.Context, f repository.CommentFilter) ([]models.ModerationComment, int64, error)
}

// Notifier is told about accepted submissions. Implementations must not block.
type Notifier interface {
	CommentSubmitted(c models.Comment)
}
