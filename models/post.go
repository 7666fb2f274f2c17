package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PostStatus is the publication state of a post.
type PostStatus uint8

const (
	PostDraft PostStatus = iota + 1
	PostPublished
)

func (s PostStatus) String() string {
	switch s {
	case PostDraft:
		return "DRAFT"
	case PostPublished:
		return "PUBLISHED"
	}
	return fmt.Sprintf("PostStatus(%d)", uint8(s))
}

// ParsePostStatus converts the wire form into a PostStatus.
func ParsePostStatus(s string) (PostStatus, error) {
	switch s {
	case "DRAFT":
		return PostDraft, nil
	case "PUBLISHED":
		return PostPublished, nil
	}
	return 0, fmt.Errorf("invalid post status %q", s)
}

func (s PostStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *PostStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParsePostStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s PostStatus) Value() (driver.Value, error) {
	if s != PostDraft && s != PostPublished {
		return nil, fmt.Errorf("cannot store %s", s)
	}
	return s.String(), nil
}

func (s *PostStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into PostStatus", src)
	}
	parsed, err := ParsePostStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Post is a blog article. ContentHTML is rendered from ContentMD on every write.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Summary     string     `gorm:"size:500" json:"summary"`
	ContentMD   string     `gorm:"type:text;not null" json:"content_md"`
	ContentHTML string     `gorm:"type:text" json:"content_html"`
	CoverURL    string     `gorm:"size:1024" json:"cover_url"`
	Status      PostStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Categories  []Category `gorm:"many2many:post_categories;" json:"categories"`
	Tags        []Tag      `gorm:"many2many:post_tags;" json:"tags"`
}
