package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and gorm auto-times shared by every row.
type Base struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&Tree{},
		&TreeReport{},
		&Quest{},
		&UserQuest{},
		&QuestCompletion{},
		&Achievement{},
		&UserAchievement{},
		&Decoration{},
		&UserDecoration{},
		&TreeDecoration{},
		&Friendship{},
		&FriendTaskRequest{},
		&RewardGrant{},
	)
}
