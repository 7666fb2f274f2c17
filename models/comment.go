package models

import "time"

// Comment is a visitor remark on a post. Orphans are kept when their post is deleted.
type Comment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PostID    uint          `gorm:"index;not null" json:"post_id"`
	Author    string        `gorm:"size:50;not null" json:"author"`
	Email     string        `gorm:"size:255" json:"email,omitempty"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	Status    CommentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	IPHash    string        `gorm:"size:64;index" json:"ip_hash"`
	CreatedAt time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PublicComment is the projection returned to visitors. It never carries email or ip hash.
type PublicComment struct {
	ID        uint          `json:"id"`
	Author    string        `json:"author"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Status    CommentStatus `json:"status,omitempty"`
}

// Public converts c to its visitor-safe projection.
func (c Comment) Public() PublicComment {
	return PublicComment{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Status:    c.Status,
	}
}

// ModerationComment is a comment joined with the title and slug of its post for the admin queue.
type ModerationComment struct {
	Comment
	PostTitle string `json:"post_title"`
	PostSlug  string `json:"post_slug"`
}
