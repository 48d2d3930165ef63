package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile represents a user in the system (requester or technician)
type Profile struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	FullName  string         `gorm:"not null" json:"full_name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'requester'" json:"role"` // "requester" or "technician"
	Points    int            `gorm:"not null;default:0" json:"points"`         // gamification balance, never negative
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// IsTechnician reports whether the profile may claim and advance repair requests
func (p *Profile) IsTechnician() bool {
	return p.Role == "technician"
}

// Level derives the gamification level from accumulated points
func (p *Profile) Level() int {
	return p.Points/100 + 1
}
