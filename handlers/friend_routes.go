package handlers

import (
	"tamagotree/middleware"
	"tamagotree/services"

	"github.com/gofiber/fiber/v2"
)

func SetupFriendRoutes(router fiber.Router, friends *services.FriendService, tasks *services.FriendTaskService) {
	router.Get("/friends", func(c *fiber.Ctx) error {
		list, err := friends.List(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to list friends", err)
		}
		return c.JSON(list)
	})

	router.Get("/friends/pending", func(c *fiber.Ctx) error {
		list, err := friends.Pending(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to list requests", err)
		}
		return c.JSON(list)
	})

	router.Post("/friends/requests", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		pair, err := friends.Request(c.UserContext(), middleware.UserID(c), req.UserID)
		if err != nil {
			return respondError(c, "friend request failed", err)
		}
		return c.JSON(pair)
	})

	router.Post("/friends/requests/:id/respond", func(c *fiber.Ctx) error {
		type Req struct {
			Accept bool `json:"accept"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		pair, err := friends.Respond(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Accept)
		if err != nil {
			return respondError(c, "response failed", err)
		}
		return c.JSON(pair)
	})

	router.Get("/friend-tasks", func(c *fiber.Ctx) error {
		lists, err := tasks.ListForUser(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to list tasks", err)
		}
		return c.JSON(lists)
	})

	router.Post("/friend-tasks", func(c *fiber.Ctx) error {
		var req services.CreateTaskInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		task, err := tasks.Create(c.UserContext(), middleware.UserID(c), req)
		if err != nil {
			return respondError(c, "task request failed", err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	router.Post("/friend-tasks/:id/complete", func(c *fiber.Ctx) error {
		res, err := tasks.Complete(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "task completion failed", err)
		}
		return c.JSON(res)
	})
}
