package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AchievementTrees      = "trees"
	AchievementGrownTrees = "grown_trees"
	AchievementTreeAge    = "tree_age"
	AchievementAcorns     = "acorns"
	AchievementRank       = "rank"
)

// Achievement is a catalog row. Threshold is interpreted per Category
// (for "rank" it is the worst qualifying leaderboard position).
type Achievement struct {
	Base

	Name        string `gorm:"uniqueIndex;not null" json:"name" yaml:"name"`
	Description string `gorm:"type:text" json:"description" yaml:"description"`
	Category    string `gorm:"type:varchar(32);index;not null" json:"category" yaml:"category"`
	Threshold   int64  `gorm:"not null" json:"threshold" yaml:"threshold"`
	AcornReward int64  `json:"acorn_reward" yaml:"acorn_reward"`
	BPReward    int64  `json:"bp_reward" yaml:"bp_reward"`
	Icon        string `json:"icon" yaml:"icon"`
}

// UserAchievement is a monotonic unlock; rows are never removed.
type UserAchievement struct {
	Base

	UserID        string            `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string            `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time         `gorm:"not null" json:"unlocked_at"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"` // stats snapshot at unlock time

	Achievement Achievement `gorm:"foreignKey:AchievementID" json:"achievement"`
}
