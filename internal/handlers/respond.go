package handlers

import (
	"errors"
	"log"

	"inventory/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// respondError answers with the status matching err and the usual
// message/error body. Validation failures list the offending fields.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := apperr.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
	}

	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		body["message"] = "Validation failed"
		body["errors"] = verr.Fields
	}
	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["productId"] = stockErr.ProductID
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	}
	return c.Status(status).JSON(body)
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// Health answers liveness checks.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
