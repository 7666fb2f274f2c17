package models

import "time"

// SiteConfig is a keyed JSON blob of site-wide settings.
type SiteConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteSettings is the decoded value stored under the "site" key.
type SiteSettings struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Keywords     string `json:"keywords"`
	Author       string `json:"author"`
	BaseURL      string `json:"base_url"`
	AboutContent string `json:"about_content"`
}

// DefaultSiteSettings is served until an administrator saves settings.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		Title:       "个人博客",
		Description: "分享技术与生活的点点滴滴",
	}
}
