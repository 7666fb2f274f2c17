package models

import "time"

// UploadedFile records a media file stored on local disk.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"-"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	Size      int64     `json:"size"`
	MimeType  string    `gorm:"size:64" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
