package handlers

import (
	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(router fiber.Router, profiles *services.ProfileService) {
	router.Get("/me", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		prof, err := profiles.Get(c.UserContext(), userID, userID)
		if err != nil {
			return respondError(c, "failed to load profile", err)
		}
		// Own profile includes the email, which is hidden from everyone else.
		return c.JSON(fiber.Map{"profile": prof, "email": prof.Email})
	})

	router.Patch("/me", func(c *fiber.Ctx) error {
		var req services.UpdateProfileInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		prof, err := profiles.Update(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return respondError(c, "failed to update profile", err)
		}
		return c.JSON(prof)
	})

	router.Post("/me/avatar", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "avatar file is required",
				"cause": err.Error(),
			})
		}
		prof, err := profiles.UploadAvatar(c.UserContext(), middleware.UserID(c), fh)
		if err != nil {
			return respondError(c, "failed to upload avatar", err)
		}
		return c.JSON(prof)
	})

	router.Get("/me/level", func(c *fiber.Ctx) error {
		prog, rank, err := profiles.Level(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to load level", err)
		}
		return c.JSON(fiber.Map{
			"level":         prog.Level,
			"current_xp":    prog.Current,
			"required_xp":   prog.Required,
			"guardian_rank": rank,
		})
	})

	router.Get("/profiles/:id", func(c *fiber.Ctx) error {
		prof, err := profiles.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "profile not available", err)
		}
		return c.JSON(prof)
	})
}
