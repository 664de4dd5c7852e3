package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"tamagotree/models"
	"tamagotree/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EST is the fixed UTC-5 zone used for weekly boundaries. It does not follow daylight saving.
var EST = time.FixedZone("EST", -5*60*60)

// DailyResetAfter is how long a completed tree quest stays completed.
const DailyResetAfter = 18 * time.Hour

// DailyResetDue reports whether a completed tree-specific daily quest should reopen.
func DailyResetDue(uq *models.UserQuest, now time.Time) bool {
	return uq.Completed && now.Sub(uq.LastResetAt) >= DailyResetAfter
}

// WeeklyResetDue reports whether a completed weekly quest should reopen: it is Sunday in EST,
// the last reset fell on an earlier EST calendar day, at least one whole day has passed, and
// the completion belongs to an earlier week. A quest completed since WeekStart(now) was earned
// inside the current progress window and stays completed until the next Sunday.
func WeeklyResetDue(uq *models.UserQuest, now time.Time) bool {
	if !uq.Completed {
		return false
	}
	if uq.CompletedAt != nil && !uq.CompletedAt.Before(WeekStart(now)) {
		return false
	}
	nowEST := now.In(EST)
	lastEST := uq.LastResetAt.In(EST)
	if nowEST.Weekday() != time.Sunday {
		return false
	}
	if sameDay(nowEST, lastEST) {
		return false
	}
	return int(now.Sub(uq.LastResetAt)/(24*time.Hour)) > 0
}

// WeekStart is Sunday 00:00 EST of the week containing now.
func WeekStart(now time.Time) time.Time {
	t := now.In(EST)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, EST)
	return day.AddDate(0, 0, -int(t.Weekday()))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DefaultTarget is the progress target of a kind when the catalog row leaves it at 0.
func DefaultTarget(kind models.QuestKind) int {
	switch kind {
	case models.QuestKindBusyBee:
		return 7
	case models.QuestKindTopTen, models.QuestKindTopFive, models.QuestKindOnTop:
		return 3
	default:
		return 1
	}
}

func questTarget(q models.Quest) int {
	if q.Target > 0 {
		return q.Target
	}
	return DefaultTarget(q.Kind)
}

type QuestProgress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

type QuestView struct {
	ID            string         `json:"id"`
	Quest         models.Quest   `json:"quest"`
	TreeID        *string        `json:"tree_id,omitempty"`
	Completed     bool           `json:"completed"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	LastResetAt   time.Time      `json:"last_reset_at"`
	Progress      QuestProgress  `json:"progress"`
	JustCompleted bool           `json:"just_completed,omitempty"`
	Reward        *RewardOutcome `json:"reward,omitempty"`
}

type CompletionResult struct {
	Quest    QuestView            `json:"quest"`
	Reward   *RewardOutcome       `json:"reward"`
	PhotoURL string               `json:"photo_url,omitempty"`
	Unlocked []models.Achievement `json:"unlocked_achievements"`
}

type QuestService struct {
	DB           *gorm.DB
	Rewards      *RewardService
	Achievements *AchievementService
	Store        utils.ObjectStore
	Now          Clock
}

func NewQuestService(db *gorm.DB, rewards *RewardService, achievements *AchievementService, store utils.ObjectStore) *QuestService {
	return &QuestService{DB: db, Rewards: rewards, Achievements: achievements, Store: store}
}

func (s *QuestService) Catalog(ctx context.Context) ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.WithContext(ctx).Order("quest_type ASC").Order("created_at ASC").Order("name ASC").Find(&quests).Error
	return quests, err
}

// SyncWeekly reconciles the user's account-wide weekly quests: missing rows are created,
// expired ones reset, progress recomputed, and quests at target completed and rewarded.
func (s *QuestService) SyncWeekly(ctx context.Context, userID string) ([]QuestView, error) {
	now := s.Now.now()
	var views []QuestView
	var completedAny bool

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quests []models.Quest
		if err := tx.Where("quest_type = ? AND tree_specific = ?", models.QuestTypeWeekly, false).
			Order("created_at ASC").Order("name ASC").
			Find(&quests).Error; err != nil {
			return err
		}
		rows, err := s.ensureInstances(tx, userID, nil, quests, now)
		if err != nil {
			return err
		}

		for _, q := range quests {
			uq := rows[q.ID]
			if WeeklyResetDue(uq, now) {
				if err := resetInstance(tx, uq, now); err != nil {
					return err
				}
			}

			prog, err := s.computeProgress(tx, userID, uq, now)
			if err != nil {
				return err
			}
			if !uq.Completed && prog.Current != uq.Progress {
				if err := tx.Model(&models.UserQuest{}).Where("id = ?", uq.ID).
					Update("progress", prog.Current).Error; err != nil {
					return err
				}
				uq.Progress = prog.Current
			}

			view := questView(uq, prog)
			if !uq.Completed && prog.Current >= prog.Target {
				outcome, err := s.complete(tx, uq, nil, "", now)
				if err != nil {
					return err
				}
				view = questView(uq, prog)
				view.JustCompleted = true
				view.Reward = outcome
				completedAny = true
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedAny {
		s.checkAchievements(ctx, userID)
	}
	return views, nil
}

// SyncTreeDaily reconciles the daily quests of one of the user's trees. It never completes
// anything; tree quests need an explicit CompleteTreeQuest.
func (s *QuestService) SyncTreeDaily(ctx context.Context, userID, treeID string) ([]QuestView, error) {
	now := s.Now.now()
	var views []QuestView

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTree(tx, userID, treeID); err != nil {
			return err
		}
		var quests []models.Quest
		if err := tx.Where("quest_type = ? AND tree_specific = ?", models.QuestTypeDaily, true).
			Order("created_at ASC").Order("name ASC").
			Find(&quests).Error; err != nil {
			return err
		}
		rows, err := s.ensureInstances(tx, userID, &treeID, quests, now)
		if err != nil {
			return err
		}
		for _, q := range quests {
			uq := rows[q.ID]
			if DailyResetDue(uq, now) {
				if err := resetInstance(tx, uq, now); err != nil {
					return err
				}
			}
			prog, err := s.computeProgress(tx, userID, uq, now)
			if err != nil {
				return err
			}
			views = append(views, questView(uq, prog))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// CompleteTreeQuest is the player-confirmed completion of a daily tree quest. The photo is
// optional and best-effort: an upload failure is logged and the completion goes ahead.
func (s *QuestService) CompleteTreeQuest(ctx context.Context, userID, userQuestID string, photo *multipart.FileHeader) (*CompletionResult, error) {
	now := s.Now.now()

	var uq models.UserQuest
	if err := s.DB.WithContext(ctx).Preload("Quest").Where("id = ? AND user_id = ?", userQuestID, userID).First(&uq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uq.TreeID == nil || uq.Quest.QuestType != models.QuestTypeDaily {
		return nil, &utils.ValidationError{Field: "quest", Reason: "is completed automatically"}
	}
	if uq.Completed && !DailyResetDue(&uq, now) {
		return nil, ErrAlreadyCompleted
	}

	photoURL := ""
	if photo != nil && s.Store != nil {
		key := utils.ImageKey("quests/"+userID, uq.Quest.Name, photo.Filename)
		url, err := utils.UploadImage(ctx, s.Store, photo, key)
		if err != nil {
			log.Printf("⚠️ [Quests] Photo upload failed for quest %s, completing without photo: %v", uq.ID, err)
		} else {
			photoURL = url
		}
	}

	result := &CompletionResult{PhotoURL: photoURL}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTree(tx, userID, *uq.TreeID); err != nil {
			return err
		}
		if DailyResetDue(&uq, now) {
			if err := resetInstance(tx, &uq, now); err != nil {
				return err
			}
		}
		outcome, err := s.complete(tx, &uq, uq.TreeID, photoURL, now)
		if err != nil {
			return err
		}
		result.Reward = outcome
		result.Quest = questView(&uq, QuestProgress{Current: questTarget(uq.Quest), Target: questTarget(uq.Quest)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [Quests] %s completed %q on tree %s", userID, uq.Quest.Name, *uq.TreeID)
	result.Unlocked = s.checkAchievements(ctx, userID)
	return result, nil
}

// ResetSweep reopens every completed quest whose reset boundary has passed.
func (s *QuestService) ResetSweep(ctx context.Context) (int, error) {
	now := s.Now.now()
	var rows []models.UserQuest
	if err := s.DB.WithContext(ctx).Preload("Quest").Where("completed = ?", true).Find(&rows).Error; err != nil {
		return 0, err
	}

	reset := 0
	for i := range rows {
		uq := &rows[i]
		due := false
		switch uq.Quest.QuestType {
		case models.QuestTypeDaily:
			due = DailyResetDue(uq, now)
		case models.QuestTypeWeekly:
			due = WeeklyResetDue(uq, now)
		}
		if !due {
			continue
		}
		if err := resetInstance(s.DB.WithContext(ctx), uq, now); err != nil {
			return reset, fmt.Errorf("reset %s: %w", uq.ID, err)
		}
		reset++
	}
	return reset, nil
}

func treeKey(treeID *string) string {
	if treeID == nil {
		return ""
	}
	return *treeID
}

// ensureInstances returns one progress row per quest, inserting the missing ones.
func (s *QuestService) ensureInstances(tx *gorm.DB, userID string, treeID *string, quests []models.Quest, now time.Time) (map[string]*models.UserQuest, error) {
	key := treeKey(treeID)
	var existing []models.UserQuest
	if err := tx.Where("user_id = ? AND tree_key = ?", userID, key).Find(&existing).Error; err != nil {
		return nil, err
	}
	rows := make(map[string]*models.UserQuest, len(quests))
	for i := range existing {
		rows[existing[i].QuestID] = &existing[i]
	}

	for _, q := range quests {
		if _, ok := rows[q.ID]; !ok {
			uq := &models.UserQuest{
				UserID:      userID,
				QuestID:     q.ID,
				TreeKey:     key,
				TreeID:      treeID,
				LastResetAt: now,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(uq)
			if res.Error != nil {
				return nil, fmt.Errorf("create progress for %q: %w", q.Name, res.Error)
			}
			if res.RowsAffected == 0 {
				// Another request created it first.
				uq = &models.UserQuest{}
				if err := tx.Where("user_id = ? AND quest_id = ? AND tree_key = ?", userID, q.ID, key).First(uq).Error; err != nil {
					return nil, err
				}
			}
			rows[q.ID] = uq
		}
		rows[q.ID].Quest = q
	}
	return rows, nil
}

func resetInstance(db *gorm.DB, uq *models.UserQuest, now time.Time) error {
	if err := db.Model(&models.UserQuest{}).Where("id = ?", uq.ID).Updates(map[string]interface{}{
		"progress":      0,
		"completed":     false,
		"completed_at":  nil,
		"last_reset_at": now,
	}).Error; err != nil {
		return err
	}
	uq.Progress = 0
	uq.Completed = false
	uq.CompletedAt = nil
	uq.LastResetAt = now
	return nil
}

// complete flips the row to completed, logs it and applies the quest rewards.
// The conditional update makes a second concurrent completion fail instead of paying twice.
func (s *QuestService) complete(tx *gorm.DB, uq *models.UserQuest, treeID *string, photoURL string, now time.Time) (*RewardOutcome, error) {
	target := questTarget(uq.Quest)
	res := tx.Model(&models.UserQuest{}).
		Where("id = ? AND completed = ?", uq.ID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": now,
			"progress":     target,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyCompleted
	}
	uq.Completed = true
	uq.CompletedAt = &now
	uq.Progress = target

	if err := tx.Create(&models.QuestCompletion{
		UserID:      uq.UserID,
		QuestID:     uq.QuestID,
		TreeID:      treeID,
		QuestType:   uq.Quest.QuestType,
		PhotoURL:    photoURL,
		CompletedAt: now,
	}).Error; err != nil {
		return nil, err
	}

	g := Grant{
		UserID:   uq.UserID,
		TreeID:   treeID,
		Source:   models.RewardSourceQuest,
		SourceID: uq.ID,
		Acorns:   uq.Quest.AcornReward,
		XP:       uq.Quest.XPReward,
		Detail:   map[string]interface{}{"quest": uq.Quest.Name},
	}
	if treeID != nil {
		g.BP = uq.Quest.BPReward
	}
	return s.Rewards.Apply(tx, g)
}

// computeProgress dispatches on the quest kind.
func (s *QuestService) computeProgress(tx *gorm.DB, userID string, uq *models.UserQuest, now time.Time) (QuestProgress, error) {
	prog := QuestProgress{Target: questTarget(uq.Quest)}
	weekStart := WeekStart(now).UTC()

	switch uq.Quest.Kind {
	case models.QuestKindBusyBee:
		var stamps []time.Time
		if err := tx.Model(&models.QuestCompletion{}).
			Where("user_id = ? AND quest_type = ? AND completed_at >= ?", userID, models.QuestTypeDaily, weekStart).
			Pluck("completed_at", &stamps).Error; err != nil {
			return prog, err
		}
		days := make(map[string]struct{})
		for _, t := range stamps {
			days[t.In(EST).Format("2006-01-02")] = struct{}{}
		}
		prog.Current = len(days)
	case models.QuestKindNewLife:
		var count int64
		if err := tx.Model(&models.Tree{}).
			Where("reporter_id = ? AND created_at >= ?", userID, weekStart).
			Count(&count).Error; err != nil {
			return prog, err
		}
		prog.Current = int(count)
	case models.QuestKindTreeCare:
		if uq.Completed {
			prog.Current = 1
		}
	default:
		// Friend and leaderboard-streak tracking does not exist yet; these never progress.
		prog.Current = 0
	}

	if uq.Completed && prog.Current < prog.Target {
		prog.Current = prog.Target
	}
	return prog, nil
}

func (s *QuestService) checkAchievements(ctx context.Context, userID string) []models.Achievement {
	if s.Achievements == nil {
		return nil
	}
	unlocked, err := s.Achievements.CheckAndAward(ctx, userID)
	if err != nil {
		log.Printf("❌ [Quests] Achievement check failed for %s: %v", userID, err)
	}
	return unlocked
}

func questView(uq *models.UserQuest, prog QuestProgress) QuestView {
	return QuestView{
		ID:          uq.ID,
		Quest:       uq.Quest,
		TreeID:      uq.TreeID,
		Completed:   uq.Completed,
		CompletedAt: uq.CompletedAt,
		LastResetAt: uq.LastResetAt,
		Progress:    prog,
	}
}

// ownedTree loads the tree and checks userID owns it.
func ownedTree(db *gorm.DB, userID, treeID string) (*models.Tree, error) {
	var tree models.Tree
	if err := db.Where("id = ?", treeID).First(&tree).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tree.OwnerID == nil || *tree.OwnerID != userID {
		return nil, ErrForbidden
	}
	return &tree, nil
}
