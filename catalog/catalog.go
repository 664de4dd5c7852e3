package catalog

import (
	_ "embed"
	"fmt"
	"log"

	"tamagotree/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the static game content: quests, achievements and shop decorations.
type Catalog struct {
	Quests       []models.Quest       `yaml:"quests"`
	Achievements []models.Achievement `yaml:"achievements"`
	Decorations  []models.Decoration  `yaml:"decorations"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, q := range c.Quests {
		if q.Name == "" || q.Kind == "" {
			return nil, fmt.Errorf("quest %q: name and kind are required", q.Name)
		}
		if q.QuestType != models.QuestTypeDaily && q.QuestType != models.QuestTypeWeekly {
			return nil, fmt.Errorf("quest %q: unknown quest_type %q", q.Name, q.QuestType)
		}
	}
	for _, a := range c.Achievements {
		if a.Name == "" || a.Category == "" {
			return nil, fmt.Errorf("achievement %q: name and category are required", a.Name)
		}
	}
	return &c, nil
}

// Seed upserts every catalog row by name. Existing ids are kept so progress rows stay linked.
func Seed(db *gorm.DB, c *Catalog) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range c.Quests {
			q := &c.Quests[i]
			if err := upsertByName(tx, q, &q.Base, q.Name); err != nil {
				return fmt.Errorf("seed quest %q: %w", q.Name, err)
			}
		}
		for i := range c.Achievements {
			a := &c.Achievements[i]
			if err := upsertByName(tx, a, &a.Base, a.Name); err != nil {
				return fmt.Errorf("seed achievement %q: %w", a.Name, err)
			}
		}
		for i := range c.Decorations {
			d := &c.Decorations[i]
			if err := upsertByName(tx, d, &d.Base, d.Name); err != nil {
				return fmt.Errorf("seed decoration %q: %w", d.Name, err)
			}
		}
		log.Printf("🌳 [Catalog] Seeded %d quests, %d achievements, %d decorations",
			len(c.Quests), len(c.Achievements), len(c.Decorations))
		return nil
	})
}

func upsertByName(tx *gorm.DB, row any, base *models.Base, name string) error {
	var existing models.Base
	if err := tx.Model(row).Select("id", "created_at").Where("name = ?", name).Limit(1).Find(&existing).Error; err != nil {
		return err
	}
	if existing.ID == "" {
		return tx.Create(row).Error
	}
	base.ID = existing.ID
	base.CreatedAt = existing.CreatedAt
	return tx.Save(row).Error
}
