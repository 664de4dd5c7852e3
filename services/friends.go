package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tamagotree/models"
	"tamagotree/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendService struct {
	DB *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{DB: db}
}

// Friend is an accepted friendship as seen from one side.
type Friend struct {
	FriendshipID string         `json:"friendship_id"`
	Profile      models.Profile `json:"profile"`
}

// Request opens a friend request. A rejected pair can be asked again, and a request
// towards someone who already asked us accepts theirs.
func (s *FriendService) Request(ctx context.Context, fromID, toID string) (*models.Friendship, error) {
	if fromID == toID {
		return nil, &utils.ValidationError{Field: "user_id", Reason: "cannot befriend yourself"}
	}
	low, high := models.FriendPair(fromID, toID)

	var pair models.Friendship
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Profile{}).Where("id = ?", toID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		err := tx.Where("user_low = ? AND user_high = ?", low, high).First(&pair).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pair = models.Friendship{UserLow: low, UserHigh: high, RequestedBy: fromID, Status: models.FriendshipPending}
			return createPair(tx, &pair)
		}
		if err != nil {
			return err
		}

		switch {
		case pair.Status == models.FriendshipRejected:
			pair.Status = models.FriendshipPending
			pair.RequestedBy = fromID
		case pair.Status == models.FriendshipPending && pair.RequestedBy != fromID:
			pair.Status = models.FriendshipAccepted
		default:
			return fmt.Errorf("friendship already %s: %w", pair.Status, ErrConflict)
		}
		return tx.Model(&models.Friendship{}).Where("id = ?", pair.ID).Updates(map[string]interface{}{
			"status":       pair.Status,
			"requested_by": pair.RequestedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("👋 [Friends] %s -> %s (%s)", fromID, toID, pair.Status)
	return &pair, nil
}

// Respond accepts or rejects a pending request. Only the side that did not ask may answer.
func (s *FriendService) Respond(ctx context.Context, userID, friendshipID string, accept bool) (*models.Friendship, error) {
	db := s.DB.WithContext(ctx)
	var pair models.Friendship
	if err := db.Where("id = ?", friendshipID).First(&pair).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pair.UserLow != userID && pair.UserHigh != userID {
		return nil, ErrNotFound
	}
	if pair.RequestedBy == userID {
		return nil, ErrForbidden
	}

	status := models.FriendshipRejected
	if accept {
		status = models.FriendshipAccepted
	}
	res := db.Model(&models.Friendship{}).
		Where("id = ? AND status = ?", pair.ID, models.FriendshipPending).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("request is no longer pending: %w", ErrConflict)
	}
	pair.Status = status
	return &pair, nil
}

// List returns the user's accepted friends.
func (s *FriendService) List(ctx context.Context, userID string) ([]Friend, error) {
	return s.withProfiles(ctx, userID, s.DB.WithContext(ctx).
		Where("(user_low = ? OR user_high = ?) AND status = ?", userID, userID, models.FriendshipAccepted))
}

// Pending returns incoming requests waiting for the user's answer.
func (s *FriendService) Pending(ctx context.Context, userID string) ([]Friend, error) {
	return s.withProfiles(ctx, userID, s.DB.WithContext(ctx).
		Where("(user_low = ? OR user_high = ?) AND status = ? AND requested_by <> ?",
			userID, userID, models.FriendshipPending, userID))
}

func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return areFriends(s.DB.WithContext(ctx), a, b)
}

func (s *FriendService) withProfiles(ctx context.Context, userID string, q *gorm.DB) ([]Friend, error) {
	var pairs []models.Friendship
	if err := q.Order("updated_at DESC").Find(&pairs).Error; err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []Friend{}, nil
	}
	ids := make([]string, 0, len(pairs))
	for i := range pairs {
		ids = append(ids, pairs[i].Other(userID))
	}
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	friends := make([]Friend, 0, len(pairs))
	for i := range pairs {
		prof, ok := byID[pairs[i].Other(userID)]
		if !ok {
			continue
		}
		friends = append(friends, Friend{FriendshipID: pairs[i].ID, Profile: prof})
	}
	return friends, nil
}

// createPair inserts a new pair row. When a concurrent request created the same pair
// first, the unique index wins and the caller gets ErrConflict.
func createPair(tx *gorm.DB, pair *models.Friendship) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(pair)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("friend request already exists: %w", ErrConflict)
	}
	return nil
}

func areFriends(db *gorm.DB, a, b string) (bool, error) {
	if a == "" || b == "" || a == b {
		return false, nil
	}
	low, high := models.FriendPair(a, b)
	var count int64
	err := db.Model(&models.Friendship{}).
		Where("user_low = ? AND user_high = ? AND status = ?", low, high, models.FriendshipAccepted).
		Count(&count).Error
	return count > 0, err
}
