package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tamagotree/config"
	"tamagotree/handlers"
	"tamagotree/services"
	"tamagotree/utils"
	"tamagotree/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate, seed and run the HTTP API with its background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := migrateAndSeed(db); err != nil {
		return err
	}

	store, err := utils.NewS3Store(ctx, utils.StorageOptions{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		PublicURL:       cfg.Storage.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	var relay services.IssueRelay
	if cfg.IssueRelayURL != "" {
		relay = workers.NewIssueRelayClient(cfg.IssueRelayURL, cfg.IssueRelayToken)
	} else {
		log.Println("⚠️  ISSUE_RELAY_URL not set, tree reports will not be filed with the tracker")
	}

	rewards := services.NewRewardService(db)
	achievements := services.NewAchievementService(db, rewards)
	quests := services.NewQuestService(db, rewards, achievements, store)
	trees := services.NewTreeService(db, store, relay)
	friendTasks := services.NewFriendTaskService(db, rewards)

	app := fiber.New(fiber.Config{
		BodyLimit: utils.MaxImageSize + 1024*1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.Register(app, handlers.RouteConfig{
		JWTSecret:    cfg.JWTSecret,
		ServiceToken: cfg.ServiceToken,
	}, handlers.Services{
		Profiles:     services.NewProfileService(db, store),
		Trees:        trees,
		Quests:       quests,
		Achievements: achievements,
		Rewards:      rewards,
		Leaderboard:  services.NewLeaderboardService(db),
		Decorations:  services.NewDecorationService(db),
		Friends:      services.NewFriendService(db),
		FriendTasks:  friendTasks,
	})

	sched, err := workers.StartScheduler(ctx, quests, friendTasks, cfg.ResetSweepInterval)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Quest reset sweep every %s", cfg.ResetSweepInterval)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Printf("⚠️  Scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️  Server shutdown: %v", err)
	}
	trees.Drain()
	return nil
}
