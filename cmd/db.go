package cmd

import (
	"fmt"
	"os"

	"tamagotree/catalog"
	"tamagotree/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// loadCatalog reads a catalog file, or the embedded one when path is empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return catalog.Parse(data)
}

func migrateAndSeed(db *gorm.DB) error {
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	return catalog.Seed(db, cat)
}
