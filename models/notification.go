package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification represents a persisted in-app notification for a user.
// These are the durable rows; the short-lived toast alerts shown on status
// changes live in the realtime package and are never persisted.
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"` // foreign key to profiles table
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Type      string         `gorm:"not null;default:'info'" json:"type"` // "success", "info" or "error"
	IsRead    bool           `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
