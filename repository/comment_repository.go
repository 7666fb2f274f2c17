package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/inkwell/models"
)

// CommentFilter narrows the moderation queue.
type CommentFilter struct {
	Status *models.CommentStatus
	Page
}

// CommentRepository persists comments.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CommentRepository) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// UpdateStatus sets the status of one comment and reports the rows touched.
func (r *CommentRepository) UpdateStatus(ctx context.Context, id uint, status models.CommentStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected, res.Error
}

// BatchUpdateStatus sets the status of every listed comment that exists.
func (r *CommentRepository) BatchUpdateStatus(ctx context.Context, ids []uint, status models.CommentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id IN ?", ids).Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *CommentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	return res.RowsAffected, res.Error
}

func (r *CommentRepository) BatchDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

// ListApproved returns the approved comments of a post, newest first.
func (r *CommentRepository) ListApproved(ctx context.Context, postID uint) ([]models.PublicComment, error) {
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.CommentApproved).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicComment, 0, len(rows))
	for _, c := range rows {
		pc := c.Public()
		pc.Status = 0
		out = append(out, pc)
	}
	return out, nil
}

// ListForModeration returns one page of the admin queue together with the total match count.
// Comments whose post no longer exists are included with an empty title and slug.
func (r *CommentRepository) ListForModeration(ctx context.Context, f CommentFilter) ([]models.ModerationComment, int64, error) {
	scoped := func(q *gorm.DB) *gorm.DB {
		if f.Status != nil {
			return q.Where("comments.status = ?", *f.Status)
		}
		return q
	}

	var total int64
	if err := scoped(r.db.WithContext(ctx).Model(&models.Comment{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.ModerationComment{}
	err := scoped(r.db.WithContext(ctx).Table("comments")).
		Select("comments.*, COALESCE(posts.title, '') AS post_title, COALESCE(posts.slug, '') AS post_slug").
		Joins("LEFT JOIN posts ON posts.id = comments.post_id").
		Order("comments.created_at DESC").Order("comments.id DESC").
		Offset(f.Offset()).Limit(f.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Count returns the number of comments, optionally restricted to one status.
func (r *CommentRepository) Count(ctx context.Context, status *models.CommentStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
