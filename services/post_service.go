package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrSlugExists    = errors.New("slug already exists")
	ErrMissingFields = errors.New("title, slug and content are required")
)

// PostStore is the persistence PostService needs.
type PostStore interface {
	Get(ctx context.Context, id uint) (*models.Post, error)
	SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post, categories []models.Category, tags []models.Tag) error
	Delete(ctx context.Context, id uint) error
}

// TaxonomyLookup resolves category and tag ids.
type TaxonomyLookup interface {
	Categories(ctx context.Context, ids []uint) ([]models.Category, error)
	Tags(ctx context.Context, ids []uint) ([]models.Tag, error)
}

// PostInput carries a full or partial post edit. Nil fields are left unchanged.
type PostInput struct {
	Title       *string
	Slug        *string
	Summary     *string
	ContentMD   *string
	CoverURL    *string
	Status      *models.PostStatus
	CategoryIDs []uint
	TagIDs      []uint
}

// PostService owns post writes: markdown rendering, slug uniqueness and publication stamps.
type PostService struct {
	store    PostStore
	taxonomy TaxonomyLookup
	logger   *zap.Logger
	now      func() time.Time
}

func NewPostService(store PostStore, taxonomy TaxonomyLookup, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{store: store, taxonomy: taxonomy, logger: logger, now: time.Now}
}

// Create stores a new DRAFT post.
func (s *PostService) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	if blank(in.Title) || blank(in.Slug) || blank(in.ContentMD) {
		return nil, ErrMissingFields
	}
	slug := strings.TrimSpace(*in.Slug)
	if err := s.ensureSlugFree(ctx, slug, 0); err != nil {
		return nil, err
	}
	html, err := RenderMarkdown(*in.ContentMD)
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	p := &models.Post{
		Title:       strings.TrimSpace(*in.Title),
		Slug:        slug,
		Summary:     deref(in.Summary),
		ContentMD:   *in.ContentMD,
		ContentHTML: html,
		CoverURL:    deref(in.CoverURL),
		Status:      models.PostDraft,
	}
	if p.Categories, err = s.categories(ctx, in.CategoryIDs); err != nil {
		return nil, err
	}
	if p.Tags, err = s.tags(ctx, in.TagIDs); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("post created", zap.Uint("post_id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

// Update applies the non-nil fields of in. Publishing stamps PublishedAt the first time only.
func (s *PostService) Update(ctx context.Context, id uint, in PostInput) (*models.Post, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if in.Title != nil {
		if blank(in.Title) {
			return nil, ErrMissingFields
		}
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if slug == "" {
			return nil, ErrMissingFields
		}
		if slug != p.Slug {
			if err := s.ensureSlugFree(ctx, slug, p.ID); err != nil {
				return nil, err
			}
			p.Slug = slug
		}
	}
	if in.Summary != nil {
		p.Summary = *in.Summary
	}
	if in.CoverURL != nil {
		p.CoverURL = *in.CoverURL
	}
	if in.ContentMD != nil && *in.ContentMD != p.ContentMD {
		if blank(in.ContentMD) {
			return nil, ErrMissingFields
		}
		html, err := RenderMarkdown(*in.ContentMD)
		if err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		p.ContentMD, p.ContentHTML = *in.ContentMD, html
	}
	if in.Status != nil {
		p.Status = *in.Status
		if p.Status == models.PostPublished && p.PublishedAt == nil {
			now := s.now()
			p.PublishedAt = &now
		}
	}

	var (
		cats []models.Category
		tags []models.Tag
	)
	if in.CategoryIDs != nil {
		if cats, err = s.categories(ctx, in.CategoryIDs); err != nil {
			return nil, err
		}
		p.Categories = cats
	}
	if in.TagIDs != nil {
		if tags, err = s.tags(ctx, in.TagIDs); err != nil {
			return nil, err
		}
		p.Tags = tags
	}
	if err := s.store.Update(ctx, p, cats, tags); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, id uint) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	s.logger.Info("post deleted", zap.Uint("post_id", id))
	return nil
}

func (s *PostService) ensureSlugFree(ctx context.Context, slug string, exceptID uint) error {
	taken, err := s.store.SlugTaken(ctx, slug, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugExists
	}
	return nil
}

func (s *PostService) categories(ctx context.Context, ids []uint) ([]models.Category, error) {
	if ids == nil {
		return nil, nil
	}
	if s.taxonomy == nil {
		return []models.Category{}, nil
	}
	return s.taxonomy.Categories(ctx, ids)
}

func (s *PostService) tags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if ids == nil {
		return nil, nil
	}
	if s.taxonomy == nil {
		return []models.Tag{}, nil
	}
	return s.taxonomy.Tags(ctx, ids)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
