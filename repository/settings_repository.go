package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/inkwell/models"
)

// SettingsRepository stores keyed site configuration blobs.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the raw value under key, or ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var row models.SiteConfig
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&row).Error; err != nil {
		return "", translate(err)
	}
	return row.Value, nil
}

// Put creates or replaces the value under key.
func (r *SettingsRepository) Put(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": time.Now()}),
	}).Create(&models.SiteConfig{Key: key, Value: value}).Error
}

// PageViewRepository aggregates page views per day and path.
type PageViewRepository struct {
	db *gorm.DB
}

func NewPageViewRepository(db *gorm.DB) *PageViewRepository {
	return &PageViewRepository{db: db}
}

func localMidnight(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Record adds one view of path on the day of at.
func (r *PageViewRepository) Record(ctx context.Context, path string, at time.Time) error {
	// Atomic upsert to avoid duplicate key errors under concurrency
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
	}).Create(&models.PageView{Date: localMidnight(at), Path: path, Count: 1}).Error
}

// SumForDay returns the total views recorded on the day of at.
func (r *PageViewRepository) SumForDay(ctx context.Context, at time.Time) (int64, error) {
	start := localMidnight(at)
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PageView{}).
		Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(count),0)").
		Scan(&n).Error
	return n, err
}
