package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tamagotree/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrownTreeLevel is the tree level counted by the grown_trees achievements.
const GrownTreeLevel = 5

// AchievementStats are the aggregates every achievement threshold is checked against.
type AchievementStats struct {
	TreeCount       int64 `json:"tree_count"`
	GrownTreeCount  int64 `json:"grown_tree_count"`
	OldestTreeDays  int   `json:"oldest_tree_days"`
	Acorns          int64 `json:"acorns"`
	LeaderboardRank int   `json:"leaderboard_rank"` // 0 → unranked
}

// AchievementMet is the threshold predicate for one catalog row.
func AchievementMet(a models.Achievement, st AchievementStats) bool {
	switch a.Category {
	case models.AchievementTrees:
		return st.TreeCount >= a.Threshold
	case models.AchievementGrownTrees:
		return st.GrownTreeCount >= a.Threshold
	case models.AchievementTreeAge:
		return int64(st.OldestTreeDays) >= a.Threshold
	case models.AchievementAcorns:
		return st.Acorns >= a.Threshold
	case models.AchievementRank:
		return st.LeaderboardRank > 0 && int64(st.LeaderboardRank) <= a.Threshold
	}
	return false
}

// EvaluateAchievements returns the definitions whose thresholds st meets, in input order.
func EvaluateAchievements(defs []models.Achievement, st AchievementStats) []models.Achievement {
	var met []models.Achievement
	for _, a := range defs {
		if AchievementMet(a, st) {
			met = append(met, a)
		}
	}
	return met
}

type AchievementService struct {
	DB      *gorm.DB
	Rewards *RewardService
	Now     Clock
}

func NewAchievementService(db *gorm.DB, rewards *RewardService) *AchievementService {
	return &AchievementService{DB: db, Rewards: rewards}
}

// Stats aggregates the user's owned trees, acorns and leaderboard position.
func (s *AchievementService) Stats(ctx context.Context, userID string) (AchievementStats, error) {
	db := s.DB.WithContext(ctx)
	var st AchievementStats

	var prof models.Profile
	if err := db.Where("id = ?", userID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return st, ErrNotFound
		}
		return st, err
	}
	st.Acorns = prof.Acorns

	if err := db.Model(&models.Tree{}).Where("owner_id = ?", userID).Count(&st.TreeCount).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.Tree{}).
		Where("owner_id = ? AND level >= ?", userID, GrownTreeLevel).
		Count(&st.GrownTreeCount).Error; err != nil {
		return st, err
	}

	var oldest models.Tree
	err := db.Where("owner_id = ?", userID).Order("created_at ASC").First(&oldest).Error
	switch {
	case err == nil:
		st.OldestTreeDays = oldest.AgeAt(s.Now.now())
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return st, err
	}

	rank, err := rankOf(db, userID)
	if err != nil {
		return st, err
	}
	st.LeaderboardRank = rank
	return st, nil
}

// CheckAndAward evaluates every catalog achievement and awards the ones newly met.
func (s *AchievementService) CheckAndAward(ctx context.Context, userID string) ([]models.Achievement, error) {
	st, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	var defs []models.Achievement
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Order("name ASC").Find(&defs).Error; err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"tree_count":       st.TreeCount,
		"grown_tree_count": st.GrownTreeCount,
		"oldest_tree_days": st.OldestTreeDays,
		"acorns":           st.Acorns,
		"leaderboard_rank": st.LeaderboardRank,
	}

	var unlocked []models.Achievement
	for _, a := range EvaluateAchievements(defs, st) {
		ok, err := s.Award(ctx, userID, a.Name, meta)
		if err != nil {
			return unlocked, fmt.Errorf("award %q: %w", a.Name, err)
		}
		if ok {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

// Award unlocks the named achievement once and credits its rewards in the same transaction.
// It reports false when the user already had it.
func (s *AchievementService) Award(ctx context.Context, userID, name string, meta map[string]interface{}) (bool, error) {
	awarded := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def models.Achievement
		if err := tx.Where("name = ?", name).First(&def).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("achievement %q: %w", name, ErrNotFound)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.UserAchievement{}).
			Where("user_id = ? AND achievement_id = ?", userID, def.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		unlock := models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			UnlockedAt:    s.Now.now(),
			Metadata:      meta,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&unlock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if _, err := s.Rewards.Apply(tx, Grant{
			UserID:   userID,
			Source:   models.RewardSourceAchievement,
			SourceID: def.ID,
			Acorns:   def.AcornReward,
			XP:       def.BPReward,
			Detail:   map[string]interface{}{"achievement": def.Name},
		}); err != nil {
			return err
		}
		awarded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if awarded {
		log.Printf("🏆 [Achievements] %s unlocked %q", userID, name)
	}
	return awarded, nil
}

func (s *AchievementService) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *AchievementService) Catalog(ctx context.Context) ([]models.Achievement, error) {
	var defs []models.Achievement
	err := s.DB.WithContext(ctx).Order("category ASC").Order("threshold ASC").Order("name ASC").Find(&defs).Error
	return defs, err
}
