package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tamagotree/models"
)

func viewByName(t *testing.T, views []QuestView, name string) QuestView {
	t.Helper()
	for _, v := range views {
		if v.Quest.Name == name {
			return v
		}
	}
	t.Fatalf("quest %q not in views", name)
	return QuestView{}
}

func TestDailyResetDue(t *testing.T) {
	last := wednesdayNoon
	uq := &models.UserQuest{Completed: true, LastResetAt: last}
	if DailyResetDue(uq, last.Add(17*time.Hour)) {
		t.Fatalf("reset due after 17h")
	}
	if !DailyResetDue(uq, last.Add(18*time.Hour)) {
		t.Fatalf("reset not due after 18h")
	}
	uq.Completed = false
	if DailyResetDue(uq, last.Add(48*time.Hour)) {
		t.Fatalf("incomplete quest reported as due")
	}
}

func TestWeeklyResetDue(t *testing.T) {
	wed := wednesdayNoon
	sundayNoonEST := time.Date(2026, 3, 15, 12, 0, 0, 0, EST)
	saturdayNightEST := time.Date(2026, 3, 14, 22, 0, 0, 0, EST) // already Sunday in UTC
	sundayMorningEST := time.Date(2026, 3, 15, 9, 0, 0, 0, EST)

	cases := []struct {
		name string
		uq   models.UserQuest
		now  time.Time
		want bool
	}{
		{"sunday after midweek reset", models.UserQuest{Completed: true, LastResetAt: wed}, sundayNoonEST, true},
		{"not sunday", models.UserQuest{Completed: true, LastResetAt: wed}, sundayNoonEST.Add(-24 * time.Hour), false},
		{"sunday in utc only", models.UserQuest{Completed: true, LastResetAt: wed}, saturdayNightEST, false},
		{"already reset this sunday", models.UserQuest{Completed: true, LastResetAt: sundayNoonEST.Add(-10 * time.Hour)}, sundayNoonEST.Add(8 * time.Hour), false},
		{"reset last sunday", models.UserQuest{Completed: true, LastResetAt: sundayNoonEST.AddDate(0, 0, -7)}, sundayNoonEST, true},
		{"not completed", models.UserQuest{Completed: false, LastResetAt: wed}, sundayNoonEST, false},
		{"completed earlier this sunday", models.UserQuest{Completed: true, LastResetAt: wed, CompletedAt: &sundayMorningEST}, sundayNoonEST, false},
		{"completed last saturday", models.UserQuest{Completed: true, LastResetAt: wed, CompletedAt: &saturdayNightEST}, sundayNoonEST, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uq := tc.uq
			if got := WeeklyResetDue(&uq, tc.now); got != tc.want {
				t.Fatalf("WeeklyResetDue=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	got := WeekStart(wednesdayNoon)
	want := time.Date(2026, 3, 8, 0, 0, 0, 0, EST)
	if !got.Equal(want) {
		t.Fatalf("WeekStart=%s, want %s", got, want)
	}
	sunday := time.Date(2026, 3, 8, 0, 30, 0, 0, EST)
	if got := WeekStart(sunday); !got.Equal(want) {
		t.Fatalf("WeekStart(sunday)=%s, want %s", got, want)
	}
}

func TestCompleteTreeQuestAppliesRewards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Oakley")

	views, err := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	if err != nil {
		t.Fatalf("SyncTreeDaily: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d daily quests, want 3", len(views))
	}
	water := viewByName(t, views, "Water Me")
	if water.Completed || water.Progress.Current != 0 || water.Progress.Target != 1 {
		t.Fatalf("fresh quest view = %+v", water)
	}

	res, err := e.quests.CompleteTreeQuest(ctx, "u1", water.ID, nil)
	if err != nil {
		t.Fatalf("CompleteTreeQuest: %v", err)
	}
	if res.Reward.Profile.Acorns != 10 || res.Reward.Profile.TotalXP != 20 {
		t.Fatalf("profile after quest = %+v", res.Reward.Profile)
	}
	if res.Reward.Tree == nil || res.Reward.Tree.XPEarned != 15 || res.Reward.Tree.HealthPercentage != 100 {
		t.Fatalf("tree after quest = %+v", res.Reward.Tree)
	}
	if !res.Quest.Completed {
		t.Fatalf("quest not marked completed")
	}

	var completions int64
	e.db.Model(&models.QuestCompletion{}).Where("user_id = ?", "u1").Count(&completions)
	if completions != 1 {
		t.Fatalf("completions=%d, want 1", completions)
	}

	if _, err := e.quests.CompleteTreeQuest(ctx, "u1", water.ID, nil); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second completion err=%v, want ErrAlreadyCompleted", err)
	}
}

func TestCompleteTreeQuestClampsHealth(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Maple")
	if err := e.db.Model(&models.Tree{}).Where("id = ?", tree.ID).Updates(map[string]interface{}{
		"health_percentage": 95,
		"health_status":     models.HealthHealthy,
	}).Error; err != nil {
		t.Fatalf("set health: %v", err)
	}

	views, err := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	if err != nil {
		t.Fatalf("SyncTreeDaily: %v", err)
	}
	if _, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Mulch Time").ID, nil); err != nil {
		t.Fatalf("CompleteTreeQuest: %v", err)
	}

	got := e.tree(t, tree.ID)
	if got.HealthPercentage != 100 || got.HealthStatus != models.HealthHealthy {
		t.Fatalf("health=%d status=%s, want 100 healthy", got.HealthPercentage, got.HealthStatus)
	}
}

func TestCompleteTreeQuestLowHealthTier(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Birch")
	e.db.Model(&models.Tree{}).Where("id = ?", tree.ID).Updates(map[string]interface{}{
		"health_percentage": 25,
		"health_status":     models.HealthCritical,
	})

	views, _ := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	if _, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Water Me").ID, nil); err != nil {
		t.Fatalf("CompleteTreeQuest: %v", err)
	}
	got := e.tree(t, tree.ID)
	if got.HealthPercentage != 35 || got.HealthStatus != models.HealthCritical {
		t.Fatalf("health=%d status=%s, want 35 critical", got.HealthPercentage, got.HealthStatus)
	}
}

func TestDailyQuestResetsAfter19Hours(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Willow")

	views, _ := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	water := viewByName(t, views, "Water Me")
	if _, err := e.quests.CompleteTreeQuest(ctx, "u1", water.ID, nil); err != nil {
		t.Fatalf("CompleteTreeQuest: %v", err)
	}

	e.clock.Advance(19 * time.Hour)
	views, err := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	if err != nil {
		t.Fatalf("SyncTreeDaily: %v", err)
	}
	got := viewByName(t, views, "Water Me")
	if got.Completed || got.Progress.Current != 0 {
		t.Fatalf("quest after 19h = %+v, want reset", got)
	}

	var row models.UserQuest
	e.db.Where("id = ?", water.ID).First(&row)
	if row.Completed || row.Progress != 0 || row.CompletedAt != nil {
		t.Fatalf("stored row after reset = %+v", row)
	}
	if !row.LastResetAt.Equal(e.clock.Now()) {
		t.Fatalf("last_reset_at=%s, want %s", row.LastResetAt, e.clock.Now())
	}
}

func TestSyncTreeDailyRequiresOwnership(t *testing.T) {
	e := newEnv(t)
	e.user(t, "u1")
	e.user(t, "u2")
	tree := e.ownedTree(t, "u1", "Cedar")
	if _, err := e.quests.SyncTreeDaily(context.Background(), "u2", tree.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden", err)
	}
}

func TestSyncWeeklyAutoCompletesNewLife(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	e.ownedTree(t, "u1", "Sprout")

	views, err := e.quests.SyncWeekly(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncWeekly: %v", err)
	}
	if len(views) != 6 {
		t.Fatalf("got %d weekly quests, want 6", len(views))
	}
	newLife := viewByName(t, views, "New Life")
	if !newLife.JustCompleted || newLife.Reward == nil {
		t.Fatalf("New Life = %+v, want just completed", newLife)
	}
	if newLife.Reward.Grant.Acorns != 50 || newLife.Reward.Grant.XP != 100 {
		t.Fatalf("New Life grant = %+v", newLife.Reward.Grant)
	}
	if bee := viewByName(t, views, "Busy Bee"); bee.Completed || bee.Progress.Target != 7 {
		t.Fatalf("Busy Bee = %+v", bee)
	}
	if top := viewByName(t, views, "TOP 10!"); top.Progress.Current != 0 || top.Progress.Target != 3 {
		t.Fatalf("TOP 10! = %+v", top)
	}

	views, err = e.quests.SyncWeekly(ctx, "u1")
	if err != nil {
		t.Fatalf("second SyncWeekly: %v", err)
	}
	again := viewByName(t, views, "New Life")
	if !again.Completed || again.JustCompleted {
		t.Fatalf("New Life on resync = %+v", again)
	}

	var grants int64
	e.db.Model(&models.RewardGrant{}).Where("user_id = ? AND source = ?", "u1", models.RewardSourceQuest).Count(&grants)
	if grants != 1 {
		t.Fatalf("quest grants=%d, want 1", grants)
	}
}

func TestBusyBeeCountsDistinctDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Ash")

	for day := 0; day < 3; day++ {
		views, err := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
		if err != nil {
			t.Fatalf("day %d sync: %v", day, err)
		}
		if _, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Water Me").ID, nil); err != nil {
			t.Fatalf("day %d complete: %v", day, err)
		}
		if day == 0 {
			// Same day, second quest: still one day.
			if _, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Litter Patrol").ID, nil); err != nil {
				t.Fatalf("litter: %v", err)
			}
		}
		e.clock.Advance(24 * time.Hour)
	}

	// Saturday of the same week.
	views, err := e.quests.SyncWeekly(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncWeekly: %v", err)
	}
	bee := viewByName(t, views, "Busy Bee")
	if bee.Progress.Current != 3 || bee.Completed {
		t.Fatalf("Busy Bee = %+v, want 3/7", bee)
	}
}

func TestResetSweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Elm")

	views, _ := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	if _, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Water Me").ID, nil); err != nil {
		t.Fatalf("CompleteTreeQuest: %v", err)
	}

	if n, err := e.quests.ResetSweep(ctx); err != nil || n != 0 {
		t.Fatalf("early sweep n=%d err=%v, want 0", n, err)
	}
	e.clock.Advance(DailyResetAfter)
	n, err := e.quests.ResetSweep(ctx)
	if err != nil {
		t.Fatalf("ResetSweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset %d rows, want 1", n)
	}
}

func TestCompleteTreeQuestPhotoIsBestEffort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	tree := e.ownedTree(t, "u1", "Pine")
	e.store.fail = true

	views, _ := e.quests.SyncTreeDaily(ctx, "u1", tree.ID)
	res, err := e.quests.CompleteTreeQuest(ctx, "u1", viewByName(t, views, "Water Me").ID, testImage(t, "water.png"))
	if err != nil {
		t.Fatalf("CompleteTreeQuest with failing storage: %v", err)
	}
	if res.PhotoURL != "" {
		t.Fatalf("photo url=%q, want empty", res.PhotoURL)
	}
}

func TestSyncWeeklyPaysOncePerWeekAcrossSunday(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")

	if _, err := e.quests.SyncWeekly(ctx, "u1"); err != nil {
		t.Fatalf("midweek SyncWeekly: %v", err)
	}

	questGrants := func() int64 {
		var n int64
		e.db.Model(&models.RewardGrant{}).Where("user_id = ? AND source = ?", "u1", models.RewardSourceQuest).Count(&n)
		return n
	}

	// A tree reported on Sunday morning completes New Life for the week that just began.
	e.clock.Set(time.Date(2026, 3, 15, 10, 0, 0, 0, EST))
	e.ownedTree(t, "u1", "Sunday Oak")
	views, err := e.quests.SyncWeekly(ctx, "u1")
	if err != nil {
		t.Fatalf("sunday SyncWeekly: %v", err)
	}
	if nl := viewByName(t, views, "New Life"); !nl.JustCompleted {
		t.Fatalf("New Life on sunday = %+v, want just completed", nl)
	}

	for _, step := range []time.Duration{time.Minute, 6 * time.Hour} {
		e.clock.Advance(step)
		if _, err := e.quests.SyncWeekly(ctx, "u1"); err != nil {
			t.Fatalf("resync: %v", err)
		}
		if n, err := e.quests.ResetSweep(ctx); err != nil || n != 0 {
			t.Fatalf("sweep on completion sunday reset %d err=%v, want 0", n, err)
		}
	}
	if n := questGrants(); n != 1 {
		t.Fatalf("New Life grants=%d after resyncs on the same sunday, want 1", n)
	}

	// Next Sunday the quest reopens and last week's tree no longer counts.
	e.clock.Set(time.Date(2026, 3, 22, 10, 0, 0, 0, EST))
	views, err = e.quests.SyncWeekly(ctx, "u1")
	if err != nil {
		t.Fatalf("next sunday SyncWeekly: %v", err)
	}
	if nl := viewByName(t, views, "New Life"); nl.Completed || nl.Progress.Current != 0 {
		t.Fatalf("New Life next sunday = %+v, want reset at 0/1", nl)
	}

	e.ownedTree(t, "u1", "Second Oak")
	if _, err := e.quests.SyncWeekly(ctx, "u1"); err != nil {
		t.Fatalf("SyncWeekly after second tree: %v", err)
	}
	if n := questGrants(); n != 2 {
		t.Fatalf("New Life grants=%d after a second week, want 2", n)
	}
}
