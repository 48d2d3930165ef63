package models

import (
	"time"

	"gorm.io/gorm"
)

// Repair request status values. The status column is plain text, so the
// lifecycle service is the only place that enforces valid values and
// transitions.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusDiagnosing = "diagnosing"
	StatusRepairing  = "repairing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// StatusRank gives the position of a status in the forward lifecycle
// pending < assigned < diagnosing < repairing < completed. Cancelled is not
// part of the forward order; it is reachable from any non-terminal state.
var StatusRank = map[string]int{
	StatusPending:    0,
	StatusAssigned:   1,
	StatusDiagnosing: 2,
	StatusRepairing:  3,
	StatusCompleted:  4,
}

// IsTerminalStatus reports whether no further status writes are accepted
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// RepairRequest represents an e-waste repair request in the system
type RepairRequest struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	DeviceType       string         `gorm:"not null" json:"device_type"`
	IssueDescription string         `gorm:"type:text;not null" json:"issue_description"`
	Address          string         `gorm:"not null" json:"address"`
	Notes            string         `gorm:"type:text" json:"notes"`
	Status           string         `gorm:"not null;default:'pending'" json:"status"` // pending, assigned, diagnosing, repairing, completed, cancelled
	EstimatedCost    *float64       `json:"estimated_cost"`                           // nullable, set by the technician
	UserID           uint           `gorm:"not null;index" json:"user_id"`            // foreign key to profiles table (owner)
	User             Profile        `gorm:"foreignKey:UserID" json:"user"`
	TechnicianID     *uint          `gorm:"index" json:"technician_id"` // nullable, set once on claim, immutable after
	Technician       *Profile       `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Images           []RepairImage  `gorm:"foreignKey:RepairID" json:"images,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the RepairRequest model
func (RepairRequest) TableName() string {
	return "repair_requests"
}
