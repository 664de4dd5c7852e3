package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	HealthHealthy   = "healthy"
	HealthNeedsCare = "needs_care"
	HealthCritical  = "critical"
)

type Tree struct {
	Base

	Name       string  `gorm:"not null" json:"name"`
	ReporterID string  `gorm:"type:uuid;index;not null" json:"reporter_id"`
	OwnerID    *string `gorm:"type:uuid;index" json:"owner_id"` // nil → available for adoption
	Species    string  `json:"species"`
	Latitude   float64 `gorm:"index" json:"latitude"`
	Longitude  float64 `gorm:"index" json:"longitude"`

	HealthPercentage int    `gorm:"not null;default:100" json:"health_percentage"`
	HealthStatus     string `gorm:"type:varchar(16);default:'healthy'" json:"health_status"`
	Level            int    `gorm:"not null;default:1" json:"level"`
	XPEarned         int64  `gorm:"not null;default:0" json:"xp_earned"` // bloom points

	PhotoURL string `gorm:"type:text" json:"photo_url"`

	// Derived on read, never stored.
	AgeDays int `gorm:"-" json:"age_days"`
}

// AgeAt returns whole days since the tree was recorded, clamped at zero.
func (t *Tree) AgeAt(now time.Time) int {
	days := int(now.Sub(t.CreatedAt) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

const (
	RelayPending = "pending"
	RelayFiled   = "filed"
	RelayFailed  = "failed"
)

// TreeReport records a submitted tree report and the outcome of the issue relay call.
type TreeReport struct {
	Base

	TreeID      string            `gorm:"type:uuid;index;not null" json:"tree_id"`
	ReporterID  string            `gorm:"type:uuid;index;not null" json:"reporter_id"`
	Payload     datatypes.JSONMap `json:"payload"`
	RelayStatus string            `gorm:"type:varchar(16);default:'pending'" json:"relay_status"`
	IssueURL    string            `gorm:"type:text" json:"issue_url,omitempty"`
}
