package services

import (
	"context"
	"errors"

	"tamagotree/models"

	"gorm.io/gorm"
)

const hiddenGuardianName = "Hidden Guardian"

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username"`
	Level        int    `json:"level"`
	TotalXP      int64  `json:"total_xp"`
	GuardianRank string `json:"guardian_rank"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// Top lists profiles by total_xp. Private profiles keep their position but not their identity.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).
		Order("total_xp DESC").Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		e := LeaderboardEntry{
			Rank:         i + 1,
			Level:        p.Level,
			TotalXP:      p.TotalXP,
			GuardianRank: p.GuardianRank,
		}
		if p.IsPublic {
			e.UserID = p.ID
			e.Username = p.Username
			e.AvatarURL = p.AvatarURL
		} else {
			e.Username = hiddenGuardianName
		}
		entries[i] = e
	}
	return entries, nil
}

// RankOf returns the user's 1-indexed position in the Top ordering, or 0 when unknown.
func (s *LeaderboardService) RankOf(ctx context.Context, userID string) (int, error) {
	return rankOf(s.DB.WithContext(ctx), userID)
}

func rankOf(db *gorm.DB, userID string) (int, error) {
	var p models.Profile
	if err := db.Where("id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var ahead int64
	err := db.Model(&models.Profile{}).
		Where("total_xp > ?", p.TotalXP).
		Or("total_xp = ? AND created_at < ?", p.TotalXP, p.CreatedAt).
		Or("total_xp = ? AND created_at = ? AND id < ?", p.TotalXP, p.CreatedAt, p.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
