package handlers

import (
	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

type positionReq struct {
	DecorationID string  `json:"decoration_id"`
	X            float64 `json:"x_percent"`
	Y            float64 `json:"y_percent"`
}

func SetupDecorationRoutes(router fiber.Router, decorations *services.DecorationService) {
	router.Get("/me/decorations", func(c *fiber.Ctx) error {
		items, err := decorations.Inventory(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to load inventory", err)
		}
		return c.JSON(items)
	})

	router.Post("/decorations/:id/buy", func(c *fiber.Ctx) error {
		owned, err := decorations.Buy(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "purchase failed", err)
		}
		return c.JSON(owned)
	})

	router.Post("/trees/:id/decorations", func(c *fiber.Ctx) error {
		var req positionReq
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		placement, err := decorations.Place(c.UserContext(), middleware.UserID(c), c.Params("id"), req.DecorationID, req.X, req.Y)
		if err != nil {
			return respondError(c, "placement failed", err)
		}
		return c.Status(fiber.StatusCreated).JSON(placement)
	})

	router.Patch("/placements/:id", func(c *fiber.Ctx) error {
		var req positionReq
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		placement, err := decorations.Move(c.UserContext(), middleware.UserID(c), c.Params("id"), req.X, req.Y)
		if err != nil {
			return respondError(c, "move failed", err)
		}
		return c.JSON(placement)
	})

	router.Delete("/placements/:id", func(c *fiber.Ctx) error {
		if err := decorations.Remove(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, "remove failed", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
