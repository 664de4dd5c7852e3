package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"tamagotree/catalog"
	"tamagotree/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is a settable clock shared by the services and gorm's auto timestamps.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t.UTC()} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

// Wednesday 2026-03-11 12:00 EST.
var wednesdayNoon = time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T, clock *testClock) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: clock.Now,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := catalog.Seed(db, cat); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

type fakeStore struct {
	mu   sync.Mutex
	puts map[string][]byte
	fail bool
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = buf.Bytes()
	return "https://cdn.test/" + key, nil
}

type env struct {
	db           *gorm.DB
	clock        *testClock
	store        *fakeStore
	rewards      *RewardService
	achievements *AchievementService
	quests       *QuestService
	trees        *TreeService
	profiles     *ProfileService
	decorations  *DecorationService
	friends      *FriendService
	tasks        *FriendTaskService
	leaderboard  *LeaderboardService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := newTestClock(wednesdayNoon)
	db := newTestDB(t, clock)
	store := &fakeStore{}

	e := &env{db: db, clock: clock, store: store}
	e.rewards = NewRewardService(db)
	e.achievements = NewAchievementService(db, e.rewards)
	e.achievements.Now = clock.Now
	e.quests = NewQuestService(db, e.rewards, e.achievements, store)
	e.quests.Now = clock.Now
	e.trees = NewTreeService(db, store, nil)
	e.trees.Now = clock.Now
	e.profiles = NewProfileService(db, store)
	e.profiles.LookupFloor = 0
	e.decorations = NewDecorationService(db)
	e.friends = NewFriendService(db)
	e.tasks = NewFriendTaskService(db, e.rewards)
	e.tasks.Now = clock.Now
	e.leaderboard = NewLeaderboardService(db)
	return e
}

func (e *env) user(t *testing.T, id string) *models.Profile {
	t.Helper()
	prof, err := e.profiles.EnsureProfile(context.Background(), id, id+"@example.com")
	if err != nil {
		t.Fatalf("ensure profile %s: %v", id, err)
	}
	return prof
}

func (e *env) ownedTree(t *testing.T, userID, name string) *models.Tree {
	t.Helper()
	tree, err := e.trees.Report(context.Background(), userID, ReportTreeInput{
		Name:      name,
		Latitude:  40.7,
		Longitude: -74.0,
		Adopt:     true,
	}, nil)
	if err != nil {
		t.Fatalf("report tree: %v", err)
	}
	return tree
}

func (e *env) profile(t *testing.T, id string) models.Profile {
	t.Helper()
	var p models.Profile
	if err := e.db.Where("id = ?", id).First(&p).Error; err != nil {
		t.Fatalf("load profile %s: %v", id, err)
	}
	return p
}

func (e *env) tree(t *testing.T, id string) models.Tree {
	t.Helper()
	var tr models.Tree
	if err := e.db.Where("id = ?", id).First(&tr).Error; err != nil {
		t.Fatalf("load tree %s: %v", id, err)
	}
	return tr
}

// testImage builds a small PNG upload as it arrives from a multipart form.
func testImage(t *testing.T, filename string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filename))
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("\x89PNG fake image bytes"))
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["photo"][0]
}
