package handlers

import (
	"fmt"

	"inventory/internal/middleware"
	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PurchaseHandler handles HTTP requests for purchases. Writes go through the
// stock ledger, so a purchase the stock cannot cover is answered with 409.
type PurchaseHandler struct {
	service *services.PurchaseService
}

func NewPurchaseHandler(service *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

func (h *PurchaseHandler) RegisterRoutes(router fiber.Router, mw ...fiber.Handler) {
	purchaseRoutes := router.Group("/purchases", mw...)
	purchaseRoutes.Get("/", h.HandleListPurchases)
	purchaseRoutes.Get("/:id", h.HandleGetPurchase)
	purchaseRoutes.Post("/", h.HandleCreatePurchase)
	purchaseRoutes.Put("/:id", h.HandleUpdatePurchase)
	purchaseRoutes.Delete("/:id", h.HandleDeletePurchase)
}

func (h *PurchaseHandler) HandleListPurchases(c *fiber.Ctx) error {
	purchases, err := h.service.ListPurchases(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, "Could not retrieve purchases", err)
	}
	return c.JSON(purchases)
}

func (h *PurchaseHandler) HandleGetPurchase(c *fiber.Ctx) error {
	id := c.Params("id")
	purchase, err := h.service.GetPurchase(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve purchase %s", id), err)
	}
	return c.JSON(purchase)
}

func (h *PurchaseHandler) HandleCreatePurchase(c *fiber.Ctx) error {
	var in models.PurchaseInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	purchase, err := h.service.RecordPurchase(c.UserContext(), middleware.Session(c), in)
	if err != nil {
		return respondError(c, "Could not record purchase", err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

func (h *PurchaseHandler) HandleUpdatePurchase(c *fiber.Ctx) error {
	id := c.Params("id")
	var in models.PurchaseInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	purchase, err := h.service.UpdatePurchase(c.UserContext(), middleware.Session(c), id, in)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not update purchase %s", id), err)
	}
	return c.JSON(purchase)
}

func (h *PurchaseHandler) HandleDeletePurchase(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeletePurchase(c.UserContext(), middleware.Session(c), id); err != nil {
		return respondError(c, fmt.Sprintf("Could not delete purchase %s", id), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Purchase %s deleted successfully", id),
	})
}
