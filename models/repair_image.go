package models

import (
	"time"

	"gorm.io/gorm"
)

// RepairImage represents an ordered photo attachment on a repair request.
// Images are stored in S3; only the key is persisted and presigned URLs are
// computed when the repair is served.
type RepairImage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RepairID  uint           `gorm:"not null;index" json:"repair_id"` // foreign key to repair_requests table
	S3Key     string         `gorm:"not null" json:"-"`
	URL       string         `gorm:"-" json:"url,omitempty"` // computed field, presigned URL
	Position  int            `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the RepairImage model
func (RepairImage) TableName() string {
	return "repair_images"
}
