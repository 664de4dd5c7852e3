package handlers

import (
	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes registers quests and achievements.
func SetupProgressionRoutes(router fiber.Router, quests *services.QuestService, achievements *services.AchievementService) {
	router.Get("/quests/weekly", func(c *fiber.Ctx) error {
		views, err := quests.SyncWeekly(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to sync weekly quests", err)
		}
		return c.JSON(views)
	})

	router.Get("/trees/:id/quests", func(c *fiber.Ctx) error {
		views, err := quests.SyncTreeDaily(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to sync tree quests", err)
		}
		return c.JSON(views)
	})

	// Multipart with an optional "photo" part, or an empty body.
	router.Post("/quests/:id/complete", func(c *fiber.Ctx) error {
		photo, _ := c.FormFile("photo")
		res, err := quests.CompleteTreeQuest(c.UserContext(), middleware.UserID(c), c.Params("id"), photo)
		if err != nil {
			return respondError(c, "quest completion failed", err)
		}
		return c.JSON(res)
	})

	router.Post("/achievements/check", func(c *fiber.Ctx) error {
		unlocked, err := achievements.CheckAndAward(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "achievement check failed", err)
		}
		return c.JSON(fiber.Map{"unlocked": unlocked})
	})

	router.Get("/me/achievements", func(c *fiber.Ctx) error {
		rows, err := achievements.ListUnlocked(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to get achievements", err)
		}

		response := make([]fiber.Map, 0, len(rows))
		for _, ua := range rows {
			response = append(response, fiber.Map{
				"id":             ua.ID,
				"achievement_id": ua.AchievementID,
				"name":           ua.Achievement.Name,
				"description":    ua.Achievement.Description,
				"category":       ua.Achievement.Category,
				"icon":           ua.Achievement.Icon,
				"unlocked_at":    ua.UnlockedAt,
				"metadata":       ua.Metadata,
			})
		}
		return c.JSON(response)
	})
}
