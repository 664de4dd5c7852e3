package models

import "time"

type QuestType string

const (
	QuestTypeDaily  QuestType = "daily"
	QuestTypeWeekly QuestType = "weekly"
)

// QuestKind is the stable behavior tag of a catalog quest; the display name is free to change.
type QuestKind string

const (
	QuestKindBusyBee         QuestKind = "busy_bee"
	QuestKindNewLife         QuestKind = "new_life"
	QuestKindSocialButterfly QuestKind = "social_butterfly"
	QuestKindTopTen          QuestKind = "top_ten"
	QuestKindTopFive         QuestKind = "top_five"
	QuestKindOnTop           QuestKind = "on_top"
	QuestKindTreeCare        QuestKind = "tree_care"
)

// Quest is an immutable catalog row.
type Quest struct {
	Base

	Kind         QuestKind `gorm:"type:varchar(32);index;not null" json:"kind" yaml:"kind"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name" yaml:"name"`
	Description  string    `gorm:"type:text" json:"description" yaml:"description"`
	QuestType    QuestType `gorm:"type:varchar(16);index;not null" json:"quest_type" yaml:"quest_type"`
	TreeSpecific bool      `gorm:"not null;default:false" json:"tree_specific" yaml:"tree_specific"`
	AcornReward  int64     `json:"acorn_reward" yaml:"acorn_reward"`
	BPReward     int64     `json:"bp_reward" yaml:"bp_reward"`
	XPReward     int64     `json:"xp_reward" yaml:"xp_reward"`
	Target       int       `json:"target" yaml:"target"` // 0 → kind default
	Icon         string    `json:"icon" yaml:"icon"`
}

// UserQuest is the single progress instance per (user, quest, tree-or-none).
// TreeKey is the tree id or "" so the unique index also covers account-wide rows.
type UserQuest struct {
	Base

	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_quest_scope" json:"user_id"`
	QuestID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_quest_scope" json:"quest_id"`
	TreeKey     string     `gorm:"not null;default:'';uniqueIndex:idx_user_quest_scope" json:"-"`
	TreeID      *string    `gorm:"type:uuid;index" json:"tree_id"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	Completed   bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	LastResetAt time.Time  `gorm:"not null" json:"last_reset_at"`

	Quest Quest `gorm:"foreignKey:QuestID" json:"quest"`
}

// QuestCompletion is an append-only log of completions; it survives resets.
type QuestCompletion struct {
	Base

	UserID      string    `gorm:"type:uuid;index;not null" json:"user_id"`
	QuestID     string    `gorm:"type:uuid;index;not null" json:"quest_id"`
	TreeID      *string   `gorm:"type:uuid;index" json:"tree_id"`
	QuestType   QuestType `gorm:"type:varchar(16);index;not null" json:"quest_type"`
	PhotoURL    string    `gorm:"type:text" json:"photo_url,omitempty"`
	CompletedAt time.Time `gorm:"index;not null" json:"completed_at"`
}
