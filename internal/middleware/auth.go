package middleware

import (
	"log"
	"strings"

	"inventory/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionKey is the fiber.Locals key holding the caller's models.Session.
const SessionKey = "session"

// TokenValidator turns a bearer token into a session.
type TokenValidator interface {
	ValidateToken(token string) (models.Session, error)
}

// AuthRequired is a Fiber middleware that rejects requests without a valid
// bearer token and stores the resulting session for the handlers.
func AuthRequired(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		session, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// Session returns the session stored by AuthRequired. Requests that did not
// pass through it get the zero session, which is anonymous.
func Session(c *fiber.Ctx) models.Session {
	session, _ := c.Locals(SessionKey).(models.Session)
	return session
}
