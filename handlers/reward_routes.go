package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

// StreamPollInterval is how often the reward stream checks for new grants.
var StreamPollInterval = 2 * time.Second

// StreamOverlap is how far behind its cursor the reward stream re-reads the ledger.
var StreamOverlap = 10 * time.Second

func SetupRewardRoutes(router fiber.Router, rewards *services.RewardService) {
	router.Get("/rewards", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		grants, err := rewards.ListGrants(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return respondError(c, "failed to list rewards", err)
		}
		return c.JSON(grants)
	})
}

// SetupRewardStream registers the SSE feed. It takes its own auth handler because
// EventSource clients pass the token in the query string.
func SetupRewardStream(app *fiber.App, auth fiber.Handler, rewards *services.RewardService) {
	app.Get("/rewards/stream", auth, func(c *fiber.Ctx) error {
		return streamRewards(c, rewards)
	})
}

func streamRewards(c *fiber.Ctx, rewards *services.RewardService) error {
	userID := middleware.UserID(c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// Queries run detached from the request; done fires on server shutdown.
	c.Context().SetBodyStreamWriter(rewardStreamWriter(context.Background(), c.Context().Done(), rewards, userID))
	return nil
}

// rewardStreamWriter polls the ledger and writes one "reward" event per new grant.
// Each poll re-reads StreamOverlap before the cursor so a grant whose transaction
// committed after a later-stamped one is still delivered; seen ids suppress repeats.
func rewardStreamWriter(ctx context.Context, done <-chan struct{}, rewards *services.RewardService, userID string) func(w *bufio.Writer) {
	return func(w *bufio.Writer) {
		ticker := time.NewTicker(StreamPollInterval)
		defer ticker.Stop()

		cursor, err := rewards.LatestGrantTime(ctx, userID)
		if err != nil {
			log.Printf("❌ [RewardStream] Init error for user %s: %v", userID, err)
		}
		seen := make(map[string]time.Time)
		if !cursor.IsZero() {
			// Grants already in the window when the client connects are history, not news.
			prior, err := rewards.GrantsSince(ctx, userID, cursor.Add(-StreamOverlap))
			if err != nil {
				log.Printf("❌ [RewardStream] Init error for user %s: %v", userID, err)
			}
			for _, g := range prior {
				seen[g.ID] = g.CreatedAt
			}
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				grants, err := rewards.GrantsSince(ctx, userID, cursor.Add(-StreamOverlap))
				if err != nil {
					log.Printf("❌ [RewardStream] Query error for user %s: %v", userID, err)
					continue
				}

				sent := 0
				for _, g := range grants {
					if _, ok := seen[g.ID]; ok {
						continue
					}
					seen[g.ID] = g.CreatedAt
					if g.CreatedAt.After(cursor) {
						cursor = g.CreatedAt
					}
					payload, _ := json.Marshal(g)
					fmt.Fprintf(w, "event: reward\ndata: %s\n\n", payload)
					sent++
				}
				for id, at := range seen {
					if at.Before(cursor.Add(-StreamOverlap)) {
						delete(seen, id)
					}
				}

				if sent == 0 {
					w.WriteString(":\n\n")
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}
			case <-done:
				return
			}
		}
	}
}
