package handlers

import (
	"strconv"

	"tamagotree/middleware"
	"tamagotree/services"
	"tamagotree/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupTreeRoutes(router fiber.Router, trees *services.TreeService, decorations *services.DecorationService) {
	// JSON body, or multipart form fields plus an optional "photo" part.
	router.Post("/trees", func(c *fiber.Ctx) error {
		var in services.ReportTreeInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, err)
		}
		photo, _ := c.FormFile("photo")
		tree, err := trees.Report(c.UserContext(), middleware.UserID(c), in, photo)
		if err != nil {
			return respondError(c, "failed to report tree", err)
		}
		return c.Status(fiber.StatusCreated).JSON(tree)
	})

	router.Get("/trees/mine", func(c *fiber.Ctx) error {
		list, err := trees.ListMine(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to list trees", err)
		}
		return c.JSON(list)
	})

	router.Get("/trees/available", func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return respondError(c, "invalid location", &utils.ValidationError{Field: "lat", Reason: "must be a number"})
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return respondError(c, "invalid location", &utils.ValidationError{Field: "lon", Reason: "must be a number"})
		}
		radius, _ := strconv.ParseFloat(c.Query("radius_km", "0"), 64)
		list, err := trees.ListAvailable(c.UserContext(), lat, lon, radius)
		if err != nil {
			return respondError(c, "failed to list trees", err)
		}
		return c.JSON(list)
	})

	router.Get("/trees/:id", func(c *fiber.Ctx) error {
		tree, err := trees.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to load tree", err)
		}
		placements, err := decorations.ListForTree(c.UserContext(), tree.ID)
		if err != nil {
			return respondError(c, "failed to load decorations", err)
		}
		return c.JSON(fiber.Map{"tree": tree, "decorations": placements})
	})

	router.Post("/trees/:id/adopt", func(c *fiber.Ctx) error {
		tree, err := trees.Adopt(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "adoption failed", err)
		}
		return c.JSON(tree)
	})

	router.Patch("/trees/:id", func(c *fiber.Ctx) error {
		type Req struct {
			Name string `json:"name"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		tree, err := trees.Rename(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Name)
		if err != nil {
			return respondError(c, "rename failed", err)
		}
		return c.JSON(tree)
	})

	router.Delete("/trees/:id", func(c *fiber.Ctx) error {
		if err := trees.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, "delete failed", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
