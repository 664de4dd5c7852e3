package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// StreamAuthMiddleware authenticates EventSource requests, which cannot set headers,
// from the `token` query parameter.
//
// Usage:
//
//	app.Get("/rewards/stream", middleware.StreamAuthMiddleware(secret, profiles), rewards.Stream)
func StreamAuthMiddleware(secret string, profiles ProfileEnsurer) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("token"))
		if raw == "" {
			if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if raw == "" {
			log.Printf("[SSEAuth] ❌ Missing token for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}
		return authenticate(c, key, raw, profiles)
	}
}
