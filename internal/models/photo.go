package models

import "time"

const (
	StorageLocal      = "local"
	StorageMinio      = "minio"
	StorageCloudinary = "cloudinary"
)

type Photo struct {
	ID            string    `gorm:"type:varchar(27);primaryKey" json:"id"`
	OriginalName  string    `gorm:"not null" json:"originalName"`
	URL           string    `gorm:"not null" json:"url"`
	StorageDriver string    `gorm:"type:varchar(16);not null" json:"storage"`
	StorageKey    string    `gorm:"not null" json:"-"`
	Size          int64     `gorm:"not null" json:"size"`
	Width         int       `gorm:"not null;default:0" json:"width"`
	Height        int       `gorm:"not null;default:0" json:"height"`
	IsFavorite    bool      `gorm:"not null;default:false;index" json:"isFavorite"`
	UploadedAt    time.Time `gorm:"not null;index" json:"uploadedAt"`
}

func (Photo) TableName() string {
	return "photos"
}

// IsLocal reports whether the photo's bytes were written to the local upload directory.
func (p Photo) IsLocal() bool {
	return p.StorageDriver == StorageLocal
}
