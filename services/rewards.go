package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tamagotree/models"

	"gorm.io/gorm"
)

// TreeHealthBoost is added to a tree's health percentage by every tree-scoped reward.
const TreeHealthBoost = 10

// Grant describes one reward to apply. A non-nil TreeID makes it tree-scoped.
type Grant struct {
	UserID   string
	TreeID   *string
	Source   models.RewardSource
	SourceID string
	Acorns   int64
	XP       int64
	BP       int64
	Detail   map[string]interface{}
}

type RewardOutcome struct {
	Profile models.Profile     `json:"profile"`
	Tree    *models.Tree       `json:"tree,omitempty"`
	LevelUp LevelUp            `json:"level_up"`
	Grant   models.RewardGrant `json:"grant"`
}

type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// Apply credits the profile (and tree) inside tx and writes the ledger row.
// Counters are incremented in SQL so concurrent grants never overwrite each other.
func (s *RewardService) Apply(tx *gorm.DB, g Grant) (*RewardOutcome, error) {
	res := tx.Model(&models.Profile{}).Where("id = ?", g.UserID).Updates(map[string]interface{}{
		"acorns":   gorm.Expr("acorns + ?", g.Acorns),
		"total_xp": gorm.Expr("total_xp + ?", g.XP),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("credit profile %s: %w", g.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("profile %s: %w", g.UserID, ErrNotFound)
	}

	var prof models.Profile
	if err := tx.Where("id = ?", g.UserID).First(&prof).Error; err != nil {
		return nil, err
	}
	levelUp := CheckLevelUp(prof.TotalXP-g.XP, prof.TotalXP)
	prof.Level = LevelFromXP(prof.TotalXP)
	prof.GuardianRank = GuardianRank(prof.Level)
	if err := tx.Model(&models.Profile{}).Where("id = ?", prof.ID).Updates(map[string]interface{}{
		"level":         prof.Level,
		"guardian_rank": prof.GuardianRank,
	}).Error; err != nil {
		return nil, err
	}

	out := &RewardOutcome{Profile: prof, LevelUp: levelUp}

	if g.TreeID != nil {
		tree, err := s.applyToTree(tx, *g.TreeID, g.BP)
		if err != nil {
			return nil, err
		}
		out.Tree = tree
	}

	out.Grant = models.RewardGrant{
		UserID:      g.UserID,
		Source:      g.Source,
		SourceID:    g.SourceID,
		TreeID:      g.TreeID,
		Acorns:      g.Acorns,
		XP:          g.XP,
		BP:          g.BP,
		LevelBefore: levelUp.OldLevel,
		LevelAfter:  levelUp.NewLevel,
		Detail:      g.Detail,
	}
	if err := tx.Create(&out.Grant).Error; err != nil {
		return nil, fmt.Errorf("record grant: %w", err)
	}

	if levelUp.LeveledUp {
		log.Printf("🎉 [Rewards] %s reached level %d", g.UserID, levelUp.NewLevel)
	}
	return out, nil
}

func (s *RewardService) applyToTree(tx *gorm.DB, treeID string, bp int64) (*models.Tree, error) {
	res := tx.Model(&models.Tree{}).Where("id = ?", treeID).Updates(map[string]interface{}{
		"xp_earned": gorm.Expr("xp_earned + ?", bp),
		"health_percentage": gorm.Expr(
			"CASE WHEN health_percentage + ? > 100 THEN 100 ELSE health_percentage + ? END",
			TreeHealthBoost, TreeHealthBoost,
		),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("credit tree %s: %w", treeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("tree %s: %w", treeID, ErrNotFound)
	}

	var tree models.Tree
	if err := tx.Where("id = ?", treeID).First(&tree).Error; err != nil {
		return nil, err
	}
	tree.HealthStatus = HealthStatusFor(tree.HealthPercentage)
	tree.Level = LevelFromXP(tree.XPEarned)
	if err := tx.Model(&models.Tree{}).Where("id = ?", tree.ID).Updates(map[string]interface{}{
		"health_status": tree.HealthStatus,
		"level":         tree.Level,
	}).Error; err != nil {
		return nil, err
	}
	return &tree, nil
}

// GrantAdmin is the operator path for manual corrections.
func (s *RewardService) GrantAdmin(ctx context.Context, userID string, xp, acorns int64, reason string) (*RewardOutcome, error) {
	var out *RewardOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.Apply(tx, Grant{
			UserID: userID,
			Source: models.RewardSourceAdmin,
			Acorns: acorns,
			XP:     xp,
			Detail: map[string]interface{}{"reason": reason},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛠️ [Rewards] Admin grant to %s: xp=%d acorns=%d (%s)", userID, xp, acorns, reason)
	return out, nil
}

// ListGrants returns the user's ledger, newest first.
func (s *RewardService) ListGrants(ctx context.Context, userID string, limit int) ([]models.RewardGrant, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var grants []models.RewardGrant
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&grants).Error
	return grants, err
}

// GrantsSince returns grants created after the cursor, oldest first.
func (s *RewardService) GrantsSince(ctx context.Context, userID string, since time.Time) ([]models.RewardGrant, error) {
	var grants []models.RewardGrant
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at ASC").Order("id ASC").
		Find(&grants).Error
	return grants, err
}

// LatestGrantTime is the SSE cursor start; zero when the user has no grants.
func (s *RewardService) LatestGrantTime(ctx context.Context, userID string) (time.Time, error) {
	var latest models.RewardGrant
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return latest.CreatedAt, nil
}
