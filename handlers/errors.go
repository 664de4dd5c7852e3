package handlers

import (
	"errors"
	"log"

	"tamagotree/services"
	"tamagotree/utils"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrInsufficientAcorns):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrExpired):
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	body := fiber.Map{
		"error": msg,
		"cause": err.Error(),
	}
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}
