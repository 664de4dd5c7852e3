package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SetupPublicRoutes registers the unauthenticated catalog, leaderboard and sign-in helpers.
func SetupPublicRoutes(app *fiber.App, svc Services) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/catalog/quests", func(c *fiber.Ctx) error {
		quests, err := svc.Quests.Catalog(c.UserContext())
		if err != nil {
			return respondError(c, "failed to load quests", err)
		}
		return c.JSON(quests)
	})

	app.Get("/catalog/achievements", func(c *fiber.Ctx) error {
		defs, err := svc.Achievements.Catalog(c.UserContext())
		if err != nil {
			return respondError(c, "failed to load achievements", err)
		}
		return c.JSON(defs)
	})

	app.Get("/catalog/decorations", func(c *fiber.Ctx) error {
		items, err := svc.Decorations.Catalog(c.UserContext())
		if err != nil {
			return respondError(c, "failed to load decorations", err)
		}
		return c.JSON(items)
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := svc.Leaderboard.Top(c.UserContext(), limit)
		if err != nil {
			return respondError(c, "failed to load leaderboard", err)
		}
		return c.JSON(entries)
	})

	app.Post("/auth/lookup-email", func(c *fiber.Ctx) error {
		type Req struct {
			Username string `json:"username"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		res, err := svc.Profiles.LookupEmail(c.UserContext(), req.Username)
		if err != nil {
			return respondError(c, "lookup failed", err)
		}
		return c.JSON(res)
	})
}
