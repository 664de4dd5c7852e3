package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tamagotree/models"
	"tamagotree/utils"
)

func TestEnsureProfileIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.profiles.EnsureProfile(ctx, "u1", "a@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if !strings.HasPrefix(first.Username, "guardian_") || utils.ValidateUsername(first.Username) != nil {
		t.Fatalf("placeholder username %q", first.Username)
	}
	if first.Level != 1 || first.GuardianRank != "Seedling" || !first.IsPublic {
		t.Fatalf("new profile = %+v", first)
	}

	again, err := e.profiles.EnsureProfile(ctx, "u1", "b@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile again: %v", err)
	}
	if again.Username != first.Username || again.Email != "b@example.com" {
		t.Fatalf("second EnsureProfile = %+v", again)
	}
	var count int64
	e.db.Model(&models.Profile{}).Count(&count)
	if count != 1 {
		t.Fatalf("profiles=%d, want 1", count)
	}
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	e.user(t, "u2")

	name := "tree_guardian"
	bio := "I water things."
	prof, err := e.profiles.Update(ctx, "u1", UpdateProfileInput{Username: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if prof.Username != name || prof.Bio != bio {
		t.Fatalf("profile = %+v", prof)
	}

	if _, err := e.profiles.Update(ctx, "u2", UpdateProfileInput{Username: &name}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username err=%v, want ErrConflict", err)
	}
	bad := "shithead"
	var verr *utils.ValidationError
	if _, err := e.profiles.Update(ctx, "u2", UpdateProfileInput{Username: &bad}); !errors.As(err, &verr) {
		t.Fatalf("profane username err=%v", err)
	}
}

func TestPrivateProfileVisibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "owner")
	e.user(t, "friend")
	e.user(t, "stranger")

	private := false
	if _, err := e.profiles.Update(ctx, "owner", UpdateProfileInput{IsPublic: &private}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := e.friends.Request(ctx, "owner", "friend"); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := e.friends.Request(ctx, "friend", "owner"); err != nil {
		t.Fatalf("mutual Request: %v", err)
	}

	if _, err := e.profiles.Get(ctx, "owner", "owner"); err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if _, err := e.profiles.Get(ctx, "friend", "owner"); err != nil {
		t.Fatalf("friend view: %v", err)
	}
	if _, err := e.profiles.Get(ctx, "stranger", "owner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger view err=%v, want ErrNotFound", err)
	}
}

func TestLookupEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1")
	name := "oak_fan"
	e.profiles.Update(ctx, "u1", UpdateProfileInput{Username: &name})

	res, err := e.profiles.LookupEmail(ctx, "oak_fan")
	if err != nil || res.Email != "u1@example.com" {
		t.Fatalf("LookupEmail = %+v err=%v", res, err)
	}
	res, err = e.profiles.LookupEmail(ctx, "nobody")
	if err != nil || res.Email != "" || res.Message != GenericLookupMessage {
		t.Fatalf("missing LookupEmail = %+v err=%v", res, err)
	}
}

func TestLookupEmailTakesMinimumTime(t *testing.T) {
	e := newEnv(t)
	e.profiles.LookupFloor = 50 * time.Millisecond

	start := time.Now()
	if _, err := e.profiles.LookupEmail(context.Background(), "nobody"); err != nil {
		t.Fatalf("LookupEmail: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("lookup returned after %s", elapsed)
	}
}

func TestUploadAvatar(t *testing.T) {
	e := newEnv(t)
	e.user(t, "u1")

	prof, err := e.profiles.UploadAvatar(context.Background(), "u1", testImage(t, "me.PNG"))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if prof.AvatarURL != "https://cdn.test/avatars/u1.png" {
		t.Fatalf("avatar url %q", prof.AvatarURL)
	}
}

func TestLevelView(t *testing.T) {
	e := newEnv(t)
	e.user(t, "u1")
	e.db.Model(&models.Profile{}).Where("id = ?", "u1").Update("total_xp", 150)

	prog, rank, err := e.profiles.Level(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if prog.Level != 2 || prog.Current != 50 || prog.Required != 519 || rank != "Seedling" {
		t.Fatalf("Level = %+v %q", prog, rank)
	}
}
