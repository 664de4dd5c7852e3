package models

import "time"

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship is one undirected row per pair; UserLow < UserHigh.
type Friendship struct {
	Base

	UserLow     string `gorm:"type:uuid;not null;uniqueIndex:idx_friend_pair" json:"user_low"`
	UserHigh    string `gorm:"type:uuid;not null;uniqueIndex:idx_friend_pair" json:"user_high"`
	RequestedBy string `gorm:"type:uuid;not null" json:"requested_by"`
	Status      string `gorm:"type:varchar(16);index;not null" json:"status"`
}

// Other returns the member of the pair that is not userID.
func (f *Friendship) Other(userID string) string {
	if f.UserLow == userID {
		return f.UserHigh
	}
	return f.UserLow
}

// FriendPair orders two user ids into (low, high).
func FriendPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

const (
	FriendTaskPending   = "pending"
	FriendTaskCompleted = "completed"
)

type FriendTaskRequest struct {
	Base

	RequesterID string `gorm:"type:uuid;index;not null" json:"requester_id"`
	HelperID    string `gorm:"type:uuid;index;not null" json:"helper_id"`
	TreeID      string `gorm:"type:uuid;index;not null" json:"tree_id"`
	TaskType    string `gorm:"type:varchar(32);not null" json:"task_type"`

	RequesterAcornReward int64 `json:"requester_acorn_reward"`
	RequesterXPReward    int64 `json:"requester_xp_reward"`
	HelperAcornReward    int64 `json:"helper_acorn_reward"`
	HelperXPReward       int64 `json:"helper_xp_reward"`
	HelperBPReward       int64 `json:"helper_bp_reward"`

	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	Status      string     `gorm:"type:varchar(16);index;not null" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
