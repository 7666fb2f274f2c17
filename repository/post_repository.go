package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/inkwell/models"
)

// PostFilter narrows the public post listing. Category and Tag are slugs.
type PostFilter struct {
	Category string
	Tag      string
	Query    string
	Page
}

// PostSummary is the light projection used by search and feeds.
type PostSummary struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PostRepository persists posts and their category and tag links.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PublishedPostExists reports whether id names a post in the PUBLISHED state.
func (r *PostRepository) PublishedPostExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, models.PostPublished).
		Count(&n).Error
	return n > 0, err
}

func (r *PostRepository) published(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.status = ?", models.PostPublished)
}

// ListPublished returns one page of published posts, newest first.
func (r *PostRepository) ListPublished(ctx context.Context, f PostFilter) ([]models.Post, int64, error) {
	scoped := func() *gorm.DB {
		q := r.published(ctx)
		if f.Category != "" {
			q = q.Where("posts.id IN (?)", r.db.Table("post_categories").
				Select("post_categories.post_id").
				Joins("JOIN categories ON categories.id = post_categories.category_id").
				Where("categories.slug = ?", f.Category))
		}
		if f.Tag != "" {
			q = q.Where("posts.id IN (?)", r.db.Table("post_tags").
				Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.slug = ?", f.Tag))
		}
		if f.Query != "" {
			like := "%" + f.Query + "%"
			q = q.Where("posts.title LIKE ? OR posts.summary LIKE ? OR posts.content_md LIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	posts := []models.Post{}
	err := scoped().
		Preload("Categories").Preload("Tags").
		Order("posts.published_at DESC").Order("posts.id DESC").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// GetPublishedBySlug loads a published post with its categories and tags.
func (r *PostRepository) GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var p models.Post
	err := r.published(ctx).Preload("Categories").Preload("Tags").
		Where("posts.slug = ?", slug).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LatestPublished returns up to n published posts, newest first.
func (r *PostRepository) LatestPublished(ctx context.Context, n int) ([]models.Post, error) {
	posts := []models.Post{}
	q := r.published(ctx).Preload("Categories").Order("posts.published_at DESC").Order("posts.id DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	err := q.Find(&posts).Error
	return posts, err
}

// PublishedSummaries returns every published post without bodies.
func (r *PostRepository) PublishedSummaries(ctx context.Context) ([]PostSummary, error) {
	out := []PostSummary{}
	err := r.published(ctx).
		Select("id", "title", "slug", "summary", "published_at", "updated_at").
		Order("posts.published_at DESC").
		Scan(&out).Error
	return out, err
}

// List returns the most recently created posts in any state.
func (r *PostRepository) List(ctx context.Context, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.db.WithContext(ctx).Preload("Categories").Preload("Tags").
		Order("created_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *PostRepository) Get(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).Preload("Categories").Preload("Tags").First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// SlugTaken reports whether another post already uses slug.
func (r *PostRepository) SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// Create inserts p and links the categories and tags it carries. Linked rows must exist.
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	return r.db.WithContext(ctx).Omit("Categories.*", "Tags.*").Create(p).Error
}

// Update saves the scalar fields of p. Non-nil categories or tags replace the current links.
func (r *PostRepository) Update(ctx context.Context, p *models.Post, categories []models.Category, tags []models.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}
		if categories != nil {
			if err := tx.Model(p).Association("Categories").Replace(categories); err != nil {
				return err
			}
		}
		if tags != nil {
			if err := tx.Model(p).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a post and its links. Its comments are left in place.
func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := models.Post{ID: id}
		res := tx.Select(clause.Associations).Delete(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Count returns the number of posts, optionally restricted to one status.
func (r *PostRepository) Count(ctx context.Context, status *models.PostStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
