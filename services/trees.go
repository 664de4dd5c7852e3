package services

import (
	"context"
	"errors"
	"log"
	"math"
	"mime/multipart"
	"strings"
	"sync"

	"tamagotree/models"
	"tamagotree/utils"

	"gorm.io/gorm"
)

const (
	DefaultSearchRadiusKm = 5.0
	MaxSearchRadiusKm     = 50.0
	kmPerDegreeLat        = 111.32
)

// IssueReport is what gets filed with the issue tracker for a new tree.
type IssueReport struct {
	ReportID   string  `json:"report_id"`
	TreeID     string  `json:"tree_id"`
	ReporterID string  `json:"reporter_id"`
	Name       string  `json:"name"`
	Species    string  `json:"species"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Health     int     `json:"health_percentage"`
	PhotoURL   string  `json:"photo_url,omitempty"`
}

// IssueRelay files a tracker issue and returns its URL.
type IssueRelay interface {
	FileIssue(ctx context.Context, report IssueReport) (string, error)
}

type ReportTreeInput struct {
	Name             string  `json:"name" form:"name"`
	Species          string  `json:"species" form:"species"`
	Latitude         float64 `json:"latitude" form:"latitude"`
	Longitude        float64 `json:"longitude" form:"longitude"`
	HealthPercentage *int    `json:"health_percentage" form:"health_percentage"`
	Adopt            bool    `json:"adopt" form:"adopt"`
}

type TreeService struct {
	DB    *gorm.DB
	Store utils.ObjectStore
	Relay IssueRelay
	Now   Clock

	wg sync.WaitGroup
}

func NewTreeService(db *gorm.DB, store utils.ObjectStore, relay IssueRelay) *TreeService {
	return &TreeService{DB: db, Store: store, Relay: relay}
}

// Report records a new tree. The photo upload and the issue relay are best-effort;
// neither can fail the report.
func (s *TreeService) Report(ctx context.Context, userID string, in ReportTreeInput, photo *multipart.FileHeader) (*models.Tree, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateTreeName(in.Name); err != nil {
		return nil, err
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		return nil, &utils.ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return nil, &utils.ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	health := 100
	if in.HealthPercentage != nil {
		health = clampPercent(*in.HealthPercentage)
	}

	tree := models.Tree{
		Name:             in.Name,
		ReporterID:       userID,
		Species:          strings.TrimSpace(in.Species),
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		HealthPercentage: health,
		HealthStatus:     HealthStatusFor(health),
		Level:            1,
	}
	if in.Adopt {
		owner := userID
		tree.OwnerID = &owner
	}

	if photo != nil && s.Store != nil {
		key := utils.ImageKey("trees/"+userID, in.Name, photo.Filename)
		url, err := utils.UploadImage(ctx, s.Store, photo, key)
		if err != nil {
			log.Printf("⚠️ [Trees] Photo upload failed for %q, saving without photo: %v", in.Name, err)
		} else {
			tree.PhotoURL = url
		}
	}

	var report models.TreeReport
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tree).Error; err != nil {
			return err
		}
		report = models.TreeReport{
			TreeID:     tree.ID,
			ReporterID: userID,
			Payload: map[string]interface{}{
				"name":              tree.Name,
				"species":           tree.Species,
				"latitude":          tree.Latitude,
				"longitude":         tree.Longitude,
				"health_percentage": tree.HealthPercentage,
				"adopted":           in.Adopt,
			},
			RelayStatus: models.RelayPending,
		}
		return tx.Create(&report).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🌳 [Trees] %s reported %q (%s)", userID, tree.Name, tree.ID)
	s.relay(report, tree)
	tree.AgeDays = tree.AgeAt(s.Now.now())
	return &tree, nil
}

// relay files the issue in the background and only ever touches the report row.
func (s *TreeService) relay(report models.TreeReport, tree models.Tree) {
	if s.Relay == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		url, err := s.Relay.FileIssue(ctx, IssueReport{
			ReportID:   report.ID,
			TreeID:     tree.ID,
			ReporterID: tree.ReporterID,
			Name:       tree.Name,
			Species:    tree.Species,
			Latitude:   tree.Latitude,
			Longitude:  tree.Longitude,
			Health:     tree.HealthPercentage,
			PhotoURL:   tree.PhotoURL,
		})
		updates := map[string]interface{}{"relay_status": models.RelayFiled, "issue_url": url}
		if err != nil {
			log.Printf("⚠️ [Trees] Issue relay failed for report %s: %v", report.ID, err)
			updates = map[string]interface{}{"relay_status": models.RelayFailed}
		}
		if err := s.DB.WithContext(ctx).Model(&models.TreeReport{}).Where("id = ?", report.ID).Updates(updates).Error; err != nil {
			log.Printf("❌ [Trees] Failed to record relay status for report %s: %v", report.ID, err)
		}
	}()
}

// Drain waits for in-flight relay calls.
func (s *TreeService) Drain() {
	s.wg.Wait()
}

// Adopt claims an unowned tree. Two concurrent adopters cannot both win.
func (s *TreeService) Adopt(ctx context.Context, userID, treeID string) (*models.Tree, error) {
	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Tree{}).Where("id = ? AND owner_id IS NULL", treeID).Update("owner_id", userID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Tree{}).Where("id = ?", treeID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	log.Printf("🤝 [Trees] %s adopted %s", userID, treeID)
	return s.Get(ctx, treeID)
}

// ListAvailable returns unowned trees inside a bounding box around (lat, lon).
func (s *TreeService) ListAvailable(ctx context.Context, lat, lon, radiusKm float64) ([]models.Tree, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	if radiusKm > MaxSearchRadiusKm {
		radiusKm = MaxSearchRadiusKm
	}
	dLat := radiusKm / kmPerDegreeLat
	dLon := 180.0
	if c := math.Cos(lat * math.Pi / 180); c > 1e-6 {
		dLon = math.Min(radiusKm/(kmPerDegreeLat*c), 180)
	}

	var trees []models.Tree
	err := s.DB.WithContext(ctx).
		Where("owner_id IS NULL").
		Where("latitude BETWEEN ? AND ?", lat-dLat, lat+dLat).
		Where("longitude BETWEEN ? AND ?", lon-dLon, lon+dLon).
		Order("created_at DESC").
		Limit(200).
		Find(&trees).Error
	if err != nil {
		return nil, err
	}
	s.withAge(trees)
	return trees, nil
}

func (s *TreeService) ListMine(ctx context.Context, userID string) ([]models.Tree, error) {
	var trees []models.Tree
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", userID).Order("created_at ASC").Find(&trees).Error; err != nil {
		return nil, err
	}
	s.withAge(trees)
	return trees, nil
}

func (s *TreeService) Get(ctx context.Context, treeID string) (*models.Tree, error) {
	var tree models.Tree
	if err := s.DB.WithContext(ctx).Where("id = ?", treeID).First(&tree).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tree.AgeDays = tree.AgeAt(s.Now.now())
	return &tree, nil
}

func (s *TreeService) Rename(ctx context.Context, userID, treeID, name string) (*models.Tree, error) {
	name = strings.TrimSpace(name)
	if err := utils.ValidateTreeName(name); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if _, err := ownedTree(db, userID, treeID); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Tree{}).Where("id = ?", treeID).Update("name", name).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, treeID)
}

// Delete removes an owned tree together with its quest rows, placements and open friend tasks.
func (s *TreeService) Delete(ctx context.Context, userID, treeID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTree(tx, userID, treeID); err != nil {
			return err
		}
		if err := tx.Where("tree_id = ?", treeID).Delete(&models.UserQuest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tree_id = ?", treeID).Delete(&models.TreeDecoration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tree_id = ? AND status = ?", treeID, models.FriendTaskPending).Delete(&models.FriendTaskRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", treeID).Delete(&models.Tree{}).Error; err != nil {
			return err
		}
		log.Printf("🪓 [Trees] %s deleted %s", userID, treeID)
		return nil
	})
}

func (s *TreeService) withAge(trees []models.Tree) {
	now := s.Now.now()
	for i := range trees {
		trees[i].AgeDays = trees[i].AgeAt(now)
	}
}
