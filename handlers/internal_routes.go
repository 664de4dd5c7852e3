package handlers

import (
	"tamagotree/services"
	"tamagotree/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupInternalRoutes registers operator endpoints behind the service token.
func SetupInternalRoutes(router fiber.Router, quests *services.QuestService, rewards *services.RewardService) {
	router.Post("/quests/reset-sweep", func(c *fiber.Ctx) error {
		n, err := quests.ResetSweep(c.UserContext())
		if err != nil {
			return respondError(c, "reset sweep failed", err)
		}
		return c.JSON(fiber.Map{"reset": n})
	})

	router.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Acorns int64  `json:"acorns"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return respondError(c, "XP award failed", &utils.ValidationError{Field: "user_id", Reason: "is required"})
		}
		if req.XP < 0 || req.Acorns < 0 || req.XP+req.Acorns == 0 {
			return respondError(c, "XP award failed", &utils.ValidationError{Field: "xp", Reason: "xp or acorns must be positive"})
		}

		out, err := rewards.GrantAdmin(c.UserContext(), req.UserID, req.XP, req.Acorns, req.Reason)
		if err != nil {
			return respondError(c, "XP award failed", err)
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
			"acorns":  req.Acorns,
			"reward":  out,
		})
	})
}
