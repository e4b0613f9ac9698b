package handlers

import (
	"log"

	"inventory/internal/access"
	"inventory/internal/middleware"
	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes registers the authentication routes. requireAuth guards
// the routes that need a session.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignup)
	authRoutes.Post("/confirm", h.HandleConfirm)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", requireAuth, h.HandleMe)
}

// HandleSignup registers an unconfirmed viewer. The confirmation token is
// returned in the response in place of an e-mail.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var in models.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	result, err := h.authService.Signup(c.UserContext(), in)
	if err != nil {
		return respondError(c, "Registration failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":           "User registered successfully, confirm the account to gain access",
		"user":              result.User,
		"confirmationToken": result.ConfirmationToken,
	})
}

func (h *AuthHandler) HandleConfirm(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.authService.Confirm(c.UserContext(), req.Token)
	if err != nil {
		return respondError(c, "Confirmation failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Account confirmed",
		"user":    user,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var in models.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	token, user, err := h.authService.Login(c.UserContext(), in)
	if err != nil {
		log.Printf("Error during login for %s: %v", in.Email, err)
		return respondError(c, "Authentication failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleMe describes the caller's session and what it may do. The
// permission list is advisory; every operation is checked again server-side.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	session := middleware.Session(c)
	role := session.EffectiveRole()
	return c.JSON(fiber.Map{
		"session":     session,
		"role":        role,
		"permissions": access.Permissions(role),
	})
}
