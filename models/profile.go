package models

// Profile is the guardian's account-level progression row.
// ID is the auth provider's subject, not a generated uuid.
type Profile struct {
	Base

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"index" json:"-"`

	// Core progression. Level is stored redundantly and recomputed from TotalXP on every reward write.
	Acorns       int64  `gorm:"not null;default:0" json:"acorns"`
	TotalXP      int64  `gorm:"not null;default:0" json:"total_xp"`
	Level        int    `gorm:"not null;default:1" json:"level"`
	GuardianRank string `gorm:"type:varchar(32);default:'Seedling'" json:"guardian_rank"`

	Bio       string `gorm:"type:text" json:"bio"`
	AvatarURL string `gorm:"type:text" json:"avatar_url"`
	IsPublic  bool   `gorm:"not null;default:true" json:"is_public"`
}
