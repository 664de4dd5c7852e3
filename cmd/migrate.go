package cmd

import (
	"log"

	"tamagotree/catalog"
	"tamagotree/config"
	"tamagotree/models"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := config.DatabaseOnly()
			if err != nil {
				return err
			}
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := models.AutoMigrate(db); err != nil {
				return err
			}
			log.Println("✅ [Migrate] Schema is up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the quest, achievement and decoration catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := config.DatabaseOnly()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(file)
			if err != nil {
				return err
			}
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := models.AutoMigrate(db); err != nil {
				return err
			}
			return catalog.Seed(db, cat)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML to seed instead of the built-in one")
	return cmd
}
