package models

import (
	"gorm.io/datatypes"
)

type RewardSource string

const (
	RewardSourceQuest       RewardSource = "quest"
	RewardSourceAchievement RewardSource = "achievement"
	RewardSourceFriendTask  RewardSource = "friend_task"
	RewardSourceAdmin       RewardSource = "admin"
)

// RewardGrant is the ledger row written in the same transaction as the reward itself.
type RewardGrant struct {
	Base

	UserID      string            `gorm:"type:uuid;index;not null" json:"user_id"`
	Source      RewardSource      `gorm:"type:varchar(16);index;not null" json:"source"`
	SourceID    string            `gorm:"index" json:"source_id"`
	TreeID      *string           `gorm:"type:uuid" json:"tree_id,omitempty"`
	Acorns      int64             `json:"acorns"`
	XP          int64             `json:"xp"`
	BP          int64             `json:"bp"`
	LevelBefore int               `json:"level_before"`
	LevelAfter  int               `json:"level_after"`
	Detail      datatypes.JSONMap `json:"detail,omitempty"`
}
