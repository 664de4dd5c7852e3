package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"tamagotree/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

// Claims are the fields read from the auth provider's access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ProfileEnsurer creates the caller's profile on first sight.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, error)
}

// ParseToken verifies an HS256 access token and returns its claims.
func ParseToken(secret []byte, raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware accepts `Authorization: Bearer <jwt>` and attaches the caller to the context.
func AuthMiddleware(secret string, profiles ProfileEnsurer) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		return authenticate(c, key, strings.TrimSpace(parts[1]), profiles)
	}
}

func authenticate(c *fiber.Ctx, key []byte, raw string, profiles ProfileEnsurer) error {
	claims, err := ParseToken(key, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token expired"})
		}
		log.Printf("🚫 [AUTH] Rejected token for %s: %v", c.Path(), err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	if profiles != nil {
		if _, err := profiles.EnsureProfile(c.UserContext(), claims.Subject, claims.Email); err != nil {
			log.Printf("❌ [AUTH] Could not load profile for %s: %v", claims.Subject, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load profile",
				"cause": err.Error(),
			})
		}
	}

	c.Locals(UserIDKey, claims.Subject)
	c.Locals(UserEmailKey, claims.Email)
	return c.Next()
}

// UserID returns the authenticated caller, or "" outside the auth middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
