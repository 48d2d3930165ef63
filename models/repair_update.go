package models

import (
	"time"

	"gorm.io/gorm"
)

// RepairUpdate represents an append-only audit/message entry on a repair request
type RepairUpdate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RepairID  uint           `gorm:"not null;index" json:"repair_id"` // foreign key to repair_requests table
	Repair    RepairRequest  `gorm:"foreignKey:RepairID" json:"-"`    // don't include full repair in JSON
	AuthorID  uint           `gorm:"not null;index" json:"author_id"` // foreign key to profiles table
	Author    Profile        `gorm:"foreignKey:AuthorID" json:"author"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the RepairUpdate model
func (RepairUpdate) TableName() string {
	return "repair_updates"
}
