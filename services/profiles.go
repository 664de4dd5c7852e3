package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"tamagotree/models"
	"tamagotree/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenericLookupMessage is returned whenever a username lookup does not yield an email,
// so callers cannot tell a missing account from any other outcome.
const GenericLookupMessage = "If an account with that username exists, the request has been processed."

// DefaultLookupFloor is the minimum duration of a username lookup.
const DefaultLookupFloor = 400 * time.Millisecond

type ProfileService struct {
	DB          *gorm.DB
	Store       utils.ObjectStore
	LookupFloor time.Duration
}

func NewProfileService(db *gorm.DB, store utils.ObjectStore) *ProfileService {
	return &ProfileService{DB: db, Store: store, LookupFloor: DefaultLookupFloor}
}

// EnsureProfile returns the user's profile, creating it on first sight (idempotent).
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	db := s.DB.WithContext(ctx)
	var prof models.Profile
	err := db.Where("id = ?", userID).First(&prof).Error
	if err == nil {
		if email != "" && prof.Email != email {
			if err := db.Model(&prof).Update("email", email).Error; err != nil {
				return nil, err
			}
		}
		return &prof, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prof = models.Profile{
		Base:         models.Base{ID: userID},
		Username:     placeholderUsername(),
		Email:        email,
		Level:        1,
		GuardianRank: GuardianRank(1),
		IsPublic:     true,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&prof).Error; err != nil {
		return nil, err
	}
	// Re-read so a concurrent first request sees the same row.
	if err := db.Where("id = ?", userID).First(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}

// placeholderUsername draws "guardian_" plus 6 hex characters. Hex can spell leet
// words ("a55"), so draws the filter rejects are thrown away.
func placeholderUsername() string {
	for {
		name := "guardian_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
		if utils.ValidateUsername(name) == nil {
			return name
		}
	}
}

// Get returns a profile as seen by viewerID. Private profiles are only visible to
// their owner and accepted friends.
func (s *ProfileService) Get(ctx context.Context, viewerID, userID string) (*models.Profile, error) {
	db := s.DB.WithContext(ctx)
	var prof models.Profile
	if err := db.Where("id = ?", userID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if prof.IsPublic || viewerID == userID {
		return &prof, nil
	}
	ok, err := areFriends(db, viewerID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &prof, nil
}

type UpdateProfileInput struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	IsPublic *bool   `json:"is_public"`
}

func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if err := utils.ValidateUsername(name); err != nil {
			return nil, err
		}
		updates["username"] = name
	}
	if in.Bio != nil {
		if err := utils.ValidateBio(*in.Bio); err != nil {
			return nil, err
		}
		updates["bio"] = *in.Bio
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}

	db := s.DB.WithContext(ctx)
	if name, ok := updates["username"]; ok {
		var taken int64
		if err := db.Model(&models.Profile{}).Where("username = ? AND id <> ?", name, userID).Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			return nil, fmt.Errorf("username %q: %w", name, ErrConflict)
		}
	}
	if len(updates) > 0 {
		res := db.Model(&models.Profile{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	var prof models.Profile
	if err := db.Where("id = ?", userID).First(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}

// UploadAvatar stores the image under a per-user key, replacing any previous avatar.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, fh *multipart.FileHeader) (*models.Profile, error) {
	if s.Store == nil {
		return nil, errors.New("object storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".png"
	}
	url, err := utils.UploadImage(ctx, s.Store, fh, "avatars/"+userID+ext)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.Profile{}).Where("id = ?", userID).Update("avatar_url", url).Error; err != nil {
		return nil, err
	}
	var prof models.Profile
	if err := db.Where("id = ?", userID).First(&prof).Error; err != nil {
		return nil, err
	}
	return &prof, nil
}

type LookupResult struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}

// LookupEmail resolves a username to its sign-in email. Every call takes at least
// LookupFloor so the response time does not reveal whether the account exists.
func (s *ProfileService) LookupEmail(ctx context.Context, username string) (LookupResult, error) {
	deadline := time.Now().Add(s.LookupFloor)
	defer func() {
		if wait := time.Until(deadline); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
			}
		}
	}()

	username = strings.TrimSpace(username)
	if username == "" {
		return LookupResult{Message: GenericLookupMessage}, nil
	}
	var prof models.Profile
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&prof).Error
	if err != nil || prof.Email == "" {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return LookupResult{}, err
		}
		return LookupResult{Message: GenericLookupMessage}, nil
	}
	return LookupResult{Email: prof.Email}, nil
}

// Level returns the leveling breakdown of the user's stored XP.
func (s *ProfileService) Level(ctx context.Context, userID string) (LevelProgress, string, error) {
	var prof models.Profile
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LevelProgress{}, "", ErrNotFound
		}
		return LevelProgress{}, "", err
	}
	prog := ProgressForXP(prof.TotalXP)
	return prog, GuardianRank(prog.Level), nil
}
