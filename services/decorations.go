package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tamagotree/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DecorationService struct {
	DB *gorm.DB
}

func NewDecorationService(db *gorm.DB) *DecorationService {
	return &DecorationService{DB: db}
}

func (s *DecorationService) Catalog(ctx context.Context) ([]models.Decoration, error) {
	var items []models.Decoration
	err := s.DB.WithContext(ctx).Order("price ASC").Order("name ASC").Find(&items).Error
	return items, err
}

// InventoryItem is an owned decoration with how many units are still unplaced.
type InventoryItem struct {
	models.UserDecoration
	Placed    int `json:"placed"`
	Available int `json:"available"`
}

func (s *DecorationService) Inventory(ctx context.Context, userID string) ([]InventoryItem, error) {
	db := s.DB.WithContext(ctx)
	var owned []models.UserDecoration
	if err := db.Preload("Decoration").Where("user_id = ?", userID).Order("created_at ASC").Find(&owned).Error; err != nil {
		return nil, err
	}

	type placedCount struct {
		DecorationID string
		Count        int
	}
	var counts []placedCount
	if err := db.Model(&models.TreeDecoration{}).
		Select("decoration_id, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("decoration_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	placed := make(map[string]int, len(counts))
	for _, c := range counts {
		placed[c.DecorationID] = c.Count
	}

	items := make([]InventoryItem, 0, len(owned))
	for _, o := range owned {
		p := placed[o.DecorationID]
		items = append(items, InventoryItem{UserDecoration: o, Placed: p, Available: o.Quantity - p})
	}
	return items, nil
}

// Buy spends acorns and adds one unit to the inventory in a single transaction.
func (s *DecorationService) Buy(ctx context.Context, userID, decorationID string) (*models.UserDecoration, error) {
	var owned models.UserDecoration
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deco models.Decoration
		if err := tx.Where("id = ?", decorationID).First(&deco).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Model(&models.Profile{}).
			Where("id = ? AND acorns >= ?", userID, deco.Price).
			Update("acorns", gorm.Expr("acorns - ?", deco.Price))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientAcorns
		}

		err := tx.Where("user_id = ? AND decoration_id = ?", userID, decorationID).First(&owned).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			owned = models.UserDecoration{UserID: userID, DecorationID: decorationID, Quantity: 1}
			if err := tx.Create(&owned).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&models.UserDecoration{}).Where("id = ?", owned.ID).
				Update("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
				return err
			}
			owned.Quantity++
		}
		owned.Decoration = deco
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛒 [Decorations] %s bought %q", userID, owned.Decoration.Name)
	return &owned, nil
}

// Place puts one unplaced unit on a tree the user owns.
func (s *DecorationService) Place(ctx context.Context, userID, treeID, decorationID string, x, y float64) (*models.TreeDecoration, error) {
	var placement models.TreeDecoration
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedTree(tx, userID, treeID); err != nil {
			return err
		}
		// Row lock serializes placements of the same inventory line until commit.
		var owned models.UserDecoration
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND decoration_id = ?", userID, decorationID).
			First(&owned).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("decoration not in inventory: %w", ErrNotFound)
			}
			return err
		}
		var placed int64
		if err := tx.Model(&models.TreeDecoration{}).
			Where("user_id = ? AND decoration_id = ?", userID, decorationID).
			Count(&placed).Error; err != nil {
			return err
		}
		if placed >= int64(owned.Quantity) {
			return fmt.Errorf("every unit is already placed: %w", ErrConflict)
		}
		placement = models.TreeDecoration{
			TreeID:       treeID,
			DecorationID: decorationID,
			UserID:       userID,
			XPercent:     clampPosition(x),
			YPercent:     clampPosition(y),
		}
		return tx.Create(&placement).Error
	})
	if err != nil {
		return nil, err
	}
	return &placement, nil
}

func (s *DecorationService) Move(ctx context.Context, userID, placementID string, x, y float64) (*models.TreeDecoration, error) {
	db := s.DB.WithContext(ctx)
	placement, err := s.ownedPlacement(db, userID, placementID)
	if err != nil {
		return nil, err
	}
	placement.XPercent = clampPosition(x)
	placement.YPercent = clampPosition(y)
	if err := db.Model(&models.TreeDecoration{}).Where("id = ?", placement.ID).Updates(map[string]interface{}{
		"x_percent": placement.XPercent,
		"y_percent": placement.YPercent,
	}).Error; err != nil {
		return nil, err
	}
	return placement, nil
}

// Remove takes a placement off its tree; the unit goes back to the inventory.
func (s *DecorationService) Remove(ctx context.Context, userID, placementID string) error {
	db := s.DB.WithContext(ctx)
	placement, err := s.ownedPlacement(db, userID, placementID)
	if err != nil {
		return err
	}
	return db.Where("id = ?", placement.ID).Delete(&models.TreeDecoration{}).Error
}

func (s *DecorationService) ListForTree(ctx context.Context, treeID string) ([]models.TreeDecoration, error) {
	var placements []models.TreeDecoration
	err := s.DB.WithContext(ctx).Where("tree_id = ?", treeID).Order("created_at ASC").Find(&placements).Error
	return placements, err
}

func (s *DecorationService) ownedPlacement(db *gorm.DB, userID, placementID string) (*models.TreeDecoration, error) {
	var placement models.TreeDecoration
	if err := db.Where("id = ?", placementID).First(&placement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if placement.UserID != userID {
		return nil, ErrForbidden
	}
	return &placement, nil
}

func clampPosition(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
