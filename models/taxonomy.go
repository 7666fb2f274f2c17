package models

import "time"

// Category groups posts; a post may belong to several.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Slug        string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PostCount   int64     `gorm:"-:all" json:"post_count"`
}

// Tag is a free-form label on posts.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:30;not null" json:"name"`
	Slug      string    `gorm:"size:30;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	PostCount int64     `gorm:"-:all" json:"post_count"`
}
