package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tamagotree/models"
)

func names(defs []models.Achievement) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func TestEvaluateAchievements(t *testing.T) {
	defs := []models.Achievement{
		{Name: "First Sprout", Category: models.AchievementTrees, Threshold: 1},
		{Name: "Arborist", Category: models.AchievementTrees, Threshold: 5},
		{Name: "Branch Manager", Category: models.AchievementTrees, Threshold: 5},
		{Name: "Green Thumb", Category: models.AchievementGrownTrees, Threshold: 1},
		{Name: "Deep Roots", Category: models.AchievementTreeAge, Threshold: 10},
		{Name: "Acorn Collector", Category: models.AchievementAcorns, Threshold: 1000},
		{Name: "Top Ten Guardian", Category: models.AchievementRank, Threshold: 10},
	}

	got := names(EvaluateAchievements(defs, AchievementStats{TreeCount: 5, OldestTreeDays: 9, Acorns: 1000}))
	want := []string{"First Sprout", "Arborist", "Branch Manager", "Acorn Collector"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if got := EvaluateAchievements(defs, AchievementStats{}); len(got) != 0 {
		t.Fatalf("empty stats unlocked %v", names(got))
	}
	if got := names(EvaluateAchievements(defs, AchievementStats{LeaderboardRank: 10, GrownTreeCount: 1, OldestTreeDays: 10})); len(got) != 3 {
		t.Fatalf("rank/grown/age unlocked %v", got)
	}
	// Unranked never counts as a top position.
	if AchievementMet(defs[6], AchievementStats{LeaderboardRank: 0}) {
		t.Fatalf("rank 0 met a rank achievement")
	}
}

func TestAwardIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")

	ok, err := e.achievements.Award(ctx, "u1", "First Sprout", nil)
	if err != nil || !ok {
		t.Fatalf("first Award ok=%v err=%v", ok, err)
	}
	ok, err = e.achievements.Award(ctx, "u1", "First Sprout", nil)
	if err != nil || ok {
		t.Fatalf("second Award ok=%v err=%v, want false", ok, err)
	}

	var unlocks int64
	e.db.Model(&models.UserAchievement{}).Where("user_id = ?", "u1").Count(&unlocks)
	if unlocks != 1 {
		t.Fatalf("unlock rows=%d, want 1", unlocks)
	}
	p := e.profile(t, "u1")
	if p.Acorns != 25 || p.TotalXP != 50 {
		t.Fatalf("profile acorns=%d xp=%d, want 25/50", p.Acorns, p.TotalXP)
	}
}

func TestAwardUnknownAchievement(t *testing.T) {
	e := newEnv(t)
	e.user(t, "u1")
	if _, err := e.achievements.Award(context.Background(), "u1", "Nope", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestCheckAndAwardFromStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	e.user(t, "u2")
	e.ownedTree(t, "u1", "Old Oak")
	// u2 leads the board so u1 is second.
	e.db.Model(&models.Profile{}).Where("id = ?", "u2").Update("total_xp", 1_000_000)

	e.clock.Advance(11 * 24 * time.Hour)
	st, err := e.achievements.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TreeCount != 1 || st.OldestTreeDays != 11 || st.LeaderboardRank != 2 {
		t.Fatalf("stats = %+v", st)
	}

	unlocked, err := e.achievements.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("CheckAndAward: %v", err)
	}
	got := map[string]bool{}
	for _, a := range unlocked {
		got[a.Name] = true
	}
	for _, want := range []string{"First Sprout", "Deep Roots", "Rising Star", "Top Ten Guardian"} {
		if !got[want] {
			t.Fatalf("missing %q in %v", want, names(unlocked))
		}
	}
	if got["Canopy Champion"] || got["Arborist"] || got["Old Growth"] {
		t.Fatalf("unexpected unlocks %v", names(unlocked))
	}

	again, err := e.achievements.CheckAndAward(ctx, "u1")
	if err != nil || len(again) != 0 {
		t.Fatalf("second check unlocked %v err=%v", names(again), err)
	}

	listed, err := e.achievements.ListUnlocked(ctx, "u1")
	if err != nil || len(listed) != len(unlocked) {
		t.Fatalf("ListUnlocked=%d err=%v, want %d", len(listed), err, len(unlocked))
	}
	if listed[0].Achievement.Name == "" {
		t.Fatalf("achievement not preloaded")
	}
}
