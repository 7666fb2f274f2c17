package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/inkwell/models"
)

type linkCount struct {
	OwnerID uint
	N       int64
}

// publishedCounts maps owner id to the number of published posts linked through joinTable.
func publishedCounts(ctx context.Context, db *gorm.DB, joinTable, ownerCol string) (map[uint]int64, error) {
	var rows []linkCount
	err := db.WithContext(ctx).Table(joinTable).
		Select(joinTable+"."+ownerCol+" AS owner_id, COUNT(*) AS n").
		Joins("JOIN posts ON posts.id = "+joinTable+".post_id").
		Where("posts.status = ?", models.PostPublished).
		Group(joinTable + "." + ownerCol).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.OwnerID] = r.N
	}
	return out, nil
}

// LinkedPost is a post attached to a category or tag, whatever its status.
type LinkedPost struct {
	ID     uint              `json:"id"`
	Title  string            `json:"title"`
	Slug   string            `json:"slug"`
	Status models.PostStatus `json:"status"`
}

func linkedPosts(ctx context.Context, db *gorm.DB, joinTable, ownerCol string, id uint) ([]LinkedPost, error) {
	posts := []LinkedPost{}
	err := db.WithContext(ctx).Table("posts").
		Select("posts.id, posts.title, posts.slug, posts.status").
		Joins("JOIN "+joinTable+" ON "+joinTable+".post_id = posts.id").
		Where(joinTable+"."+ownerCol+" = ?", id).
		Order("posts.created_at DESC").
		Scan(&posts).Error
	return posts, err
}

func slugTakenByOther(ctx context.Context, db *gorm.DB, model interface{}, slug string, id uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).Where("slug = ? AND id <> ?", slug, id).Count(&n).Error
	return n > 0, err
}

func linked(ctx context.Context, db *gorm.DB, joinTable, ownerCol string, ids []uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Table(joinTable).Where(ownerCol+" IN ?", ids).Count(&n).Error
	return n > 0, err
}

// CategoryRepository persists categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListWithCounts returns every category sorted by name with its published post count.
func (r *CategoryRepository) ListWithCounts(ctx context.Context) ([]models.Category, error) {
	items := []models.Category{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	counts, err := publishedCounts(ctx, r.db, "post_categories", "category_id")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].PostCount = counts[items[i].ID]
	}
	return items, nil
}

func (r *CategoryRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	items := []models.Category{}
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *CategoryRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// CategoryDetail is one category with every post linked to it.
type CategoryDetail struct {
	models.Category
	Posts []LinkedPost `json:"posts"`
}

// Get loads a category and its posts. PostCount counts drafts too.
func (r *CategoryRepository) Get(ctx context.Context, id uint) (*CategoryDetail, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	posts, err := linkedPosts(ctx, r.db, "post_categories", "category_id", id)
	if err != nil {
		return nil, err
	}
	c.PostCount = int64(len(posts))
	return &CategoryDetail{Category: c, Posts: posts}, nil
}

// SlugTakenByOther reports whether slug belongs to a category other than id.
func (r *CategoryRepository) SlugTakenByOther(ctx context.Context, slug string, id uint) (bool, error) {
	return slugTakenByOther(ctx, r.db, &models.Category{}, slug, id)
}

// Update overwrites name, slug and description of category c.ID and reloads c.
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	var existing models.Category
	if err := r.db.WithContext(ctx).First(&existing, c.ID).Error; err != nil {
		return translate(err)
	}
	err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"name": c.Name, "slug": c.Slug, "description": c.Description,
	}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).First(c, c.ID).Error
}

// InUse reports whether any of ids is linked to a post.
func (r *CategoryRepository) InUse(ctx context.Context, ids []uint) (bool, error) {
	return linked(ctx, r.db, "post_categories", "category_id", ids)
}

func (r *CategoryRepository) BatchDelete(ctx context.Context, ids []uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Category{})
	return res.RowsAffected, res.Error
}

func (r *CategoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error
	return n, err
}

// TagRepository persists tags.
type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// ListWithCounts returns every tag sorted by name with its published post count.
func (r *TagRepository) ListWithCounts(ctx context.Context) ([]models.Tag, error) {
	items := []models.Tag{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	counts, err := publishedCounts(ctx, r.db, "post_tags", "tag_id")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].PostCount = counts[items[i].ID]
	}
	return items, nil
}

func (r *TagRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	items := []models.Tag{}
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *TagRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *TagRepository) Create(ctx context.Context, t *models.Tag) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// TagDetail is one tag with every post linked to it.
type TagDetail struct {
	models.Tag
	Posts []LinkedPost `json:"posts"`
}

// Get loads a tag and its posts. PostCount counts drafts too.
func (r *TagRepository) Get(ctx context.Context, id uint) (*TagDetail, error) {
	var t models.Tag
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	posts, err := linkedPosts(ctx, r.db, "post_tags", "tag_id", id)
	if err != nil {
		return nil, err
	}
	t.PostCount = int64(len(posts))
	return &TagDetail{Tag: t, Posts: posts}, nil
}

func (r *TagRepository) SlugTakenByOther(ctx context.Context, slug string, id uint) (bool, error) {
	return slugTakenByOther(ctx, r.db, &models.Tag{}, slug, id)
}

// Update overwrites name and slug of tag t.ID and reloads t.
func (r *TagRepository) Update(ctx context.Context, t *models.Tag) error {
	var existing models.Tag
	if err := r.db.WithContext(ctx).First(&existing, t.ID).Error; err != nil {
		return translate(err)
	}
	err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"name": t.Name, "slug": t.Slug,
	}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).First(t, t.ID).Error
}

func (r *TagRepository) InUse(ctx context.Context, ids []uint) (bool, error) {
	return linked(ctx, r.db, "post_tags", "tag_id", ids)
}

func (r *TagRepository) BatchDelete(ctx context.Context, ids []uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Tag{})
	return res.RowsAffected, res.Error
}

func (r *TagRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Count(&n).Error
	return n, err
}

// Taxonomy resolves category and tag ids for post writes.
type Taxonomy struct {
	categories *CategoryRepository
	tags       *TagRepository
}

func NewTaxonomy(categories *CategoryRepository, tags *TagRepository) *Taxonomy {
	return &Taxonomy{categories: categories, tags: tags}
}

func (t *Taxonomy) Categories(ctx context.Context, ids []uint) ([]models.Category, error) {
	return t.categories.FindByIDs(ctx, ids)
}

func (t *Taxonomy) Tags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	return t.tags.FindByIDs(ctx, ids)
}
