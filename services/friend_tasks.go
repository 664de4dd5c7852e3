package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tamagotree/models"
	"tamagotree/utils"

	"gorm.io/gorm"
)

// FriendTaskTTL is how long a helper has to complete a request.
const FriendTaskTTL = 24 * time.Hour

type TaskReward struct {
	RequesterAcorns int64 `json:"requester_acorns"`
	RequesterXP     int64 `json:"requester_xp"`
	HelperAcorns    int64 `json:"helper_acorns"`
	HelperXP        int64 `json:"helper_xp"`
	HelperBP        int64 `json:"helper_bp"`
}

// TaskRewards is the fixed reward table per task type.
var TaskRewards = map[string]TaskReward{
	"water":   {RequesterAcorns: 5, RequesterXP: 10, HelperAcorns: 15, HelperXP: 25, HelperBP: 15},
	"mulch":   {RequesterAcorns: 5, RequesterXP: 10, HelperAcorns: 20, HelperXP: 30, HelperBP: 20},
	"litter":  {RequesterAcorns: 5, RequesterXP: 10, HelperAcorns: 15, HelperXP: 25, HelperBP: 10},
	"inspect": {RequesterAcorns: 3, RequesterXP: 5, HelperAcorns: 10, HelperXP: 15, HelperBP: 5},
}

type FriendTaskService struct {
	DB      *gorm.DB
	Rewards *RewardService
	Now     Clock
}

func NewFriendTaskService(db *gorm.DB, rewards *RewardService) *FriendTaskService {
	return &FriendTaskService{DB: db, Rewards: rewards}
}

type CreateTaskInput struct {
	HelperID string `json:"helper_id"`
	TreeID   string `json:"tree_id"`
	TaskType string `json:"task_type"`
}

// Create asks a friend to look after one of the requester's trees.
func (s *FriendTaskService) Create(ctx context.Context, requesterID string, in CreateTaskInput) (*models.FriendTaskRequest, error) {
	reward, ok := TaskRewards[in.TaskType]
	if !ok {
		return nil, &utils.ValidationError{Field: "task_type", Reason: "must be one of water, mulch, litter, inspect"}
	}
	if in.HelperID == "" || in.HelperID == requesterID {
		return nil, &utils.ValidationError{Field: "helper_id", Reason: "must be a friend"}
	}
	now := s.Now.now()

	var task models.FriendTaskRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friends, err := areFriends(tx, requesterID, in.HelperID)
		if err != nil {
			return err
		}
		if !friends {
			return ErrForbidden
		}
		if _, err := ownedTree(tx, requesterID, in.TreeID); err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.FriendTaskRequest{}).
			Where("helper_id = ? AND tree_id = ? AND task_type = ? AND status = ? AND expires_at > ?",
				in.HelperID, in.TreeID, in.TaskType, models.FriendTaskPending, now).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("an identical request is still open: %w", ErrConflict)
		}

		task = models.FriendTaskRequest{
			RequesterID:          requesterID,
			HelperID:             in.HelperID,
			TreeID:               in.TreeID,
			TaskType:             in.TaskType,
			RequesterAcornReward: reward.RequesterAcorns,
			RequesterXPReward:    reward.RequesterXP,
			HelperAcornReward:    reward.HelperAcorns,
			HelperXPReward:       reward.HelperXP,
			HelperBPReward:       reward.HelperBP,
			ExpiresAt:            now.Add(FriendTaskTTL),
			Status:               models.FriendTaskPending,
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("📨 [FriendTasks] %s asked %s to %s tree %s", requesterID, in.HelperID, in.TaskType, in.TreeID)
	return &task, nil
}

type TaskCompletion struct {
	Task      models.FriendTaskRequest `json:"task"`
	Helper    *RewardOutcome           `json:"helper_reward"`
	Requester *RewardOutcome           `json:"requester_reward"`
}

// Complete pays both sides. The helper's grant carries the tree boost on the requester's tree.
func (s *FriendTaskService) Complete(ctx context.Context, helperID, taskID string) (*TaskCompletion, error) {
	now := s.Now.now()
	out := &TaskCompletion{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.FriendTaskRequest
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if task.HelperID != helperID {
			return ErrForbidden
		}
		if task.Status != models.FriendTaskPending {
			return ErrAlreadyCompleted
		}
		if !now.Before(task.ExpiresAt) {
			return ErrExpired
		}

		res := tx.Model(&models.FriendTaskRequest{}).
			Where("id = ? AND status = ?", task.ID, models.FriendTaskPending).
			Updates(map[string]interface{}{"status": models.FriendTaskCompleted, "completed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}
		task.Status = models.FriendTaskCompleted
		task.CompletedAt = &now
		out.Task = task

		detail := map[string]interface{}{"task_type": task.TaskType, "tree_id": task.TreeID}
		treeID := task.TreeID
		var err error
		out.Helper, err = s.Rewards.Apply(tx, Grant{
			UserID:   task.HelperID,
			TreeID:   &treeID,
			Source:   models.RewardSourceFriendTask,
			SourceID: task.ID,
			Acorns:   task.HelperAcornReward,
			XP:       task.HelperXPReward,
			BP:       task.HelperBPReward,
			Detail:   detail,
		})
		if err != nil {
			return err
		}
		out.Requester, err = s.Rewards.Apply(tx, Grant{
			UserID:   task.RequesterID,
			Source:   models.RewardSourceFriendTask,
			SourceID: task.ID,
			Acorns:   task.RequesterAcornReward,
			XP:       task.RequesterXPReward,
			Detail:   detail,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [FriendTasks] %s completed %s for %s", helperID, out.Task.TaskType, out.Task.RequesterID)
	return out, nil
}

// PurgeExpired deletes pending requests whose deadline has passed.
func (s *FriendTaskService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.FriendTaskPending, s.Now.now()).
		Delete(&models.FriendTaskRequest{})
	return res.RowsAffected, res.Error
}

type TaskLists struct {
	Incoming []models.FriendTaskRequest `json:"incoming"`
	Outgoing []models.FriendTaskRequest `json:"outgoing"`
}

// ListForUser returns open requests addressed to and sent by the user.
func (s *FriendTaskService) ListForUser(ctx context.Context, userID string) (*TaskLists, error) {
	db := s.DB.WithContext(ctx)
	now := s.Now.now()
	lists := &TaskLists{Incoming: []models.FriendTaskRequest{}, Outgoing: []models.FriendTaskRequest{}}
	if err := db.Where("helper_id = ? AND status = ? AND expires_at > ?", userID, models.FriendTaskPending, now).
		Order("expires_at ASC").Find(&lists.Incoming).Error; err != nil {
		return nil, err
	}
	if err := db.Where("requester_id = ? AND status = ? AND expires_at > ?", userID, models.FriendTaskPending, now).
		Order("expires_at ASC").Find(&lists.Outgoing).Error; err != nil {
		return nil, err
	}
	return lists, nil
}
