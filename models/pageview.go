package models

import "time"

// PageView counts successful GETs of one path on one local calendar day.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Date      time.Time `gorm:"uniqueIndex:idx_pv_day_path;type:date;not null" json:"date"`
	Path      string    `gorm:"uniqueIndex:idx_pv_day_path;size:255;not null" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Post{}, &Category{}, &Tag{}, &Comment{}, &SiteConfig{}, &UploadedFile{}, &PageView{},
	}
}
