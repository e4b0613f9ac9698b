package handlers

import (
	"fmt"

	"inventory/internal/middleware"
	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	service *services.CustomerService
}

func NewCustomerHandler(service *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

func (h *CustomerHandler) RegisterRoutes(router fiber.Router, mw ...fiber.Handler) {
	customerRoutes := router.Group("/customers", mw...)
	customerRoutes.Get("/", h.HandleListCustomers)
	customerRoutes.Get("/:id", h.HandleGetCustomer)
	customerRoutes.Post("/", h.HandleCreateCustomer)
	customerRoutes.Put("/:id", h.HandleUpdateCustomer)
	customerRoutes.Delete("/:id", h.HandleDeleteCustomer)
}

func (h *CustomerHandler) HandleListCustomers(c *fiber.Ctx) error {
	customers, err := h.service.ListCustomers(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, "Could not retrieve customers", err)
	}
	return c.JSON(customers)
}

func (h *CustomerHandler) HandleGetCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	customer, err := h.service.GetCustomer(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve customer %s", id), err)
	}
	return c.JSON(customer)
}

func (h *CustomerHandler) HandleCreateCustomer(c *fiber.Ctx) error {
	var in models.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	customer, err := h.service.CreateCustomer(c.UserContext(), middleware.Session(c), in)
	if err != nil {
		return respondError(c, "Could not create customer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

func (h *CustomerHandler) HandleUpdateCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	var in models.CustomerInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	customer, err := h.service.UpdateCustomer(c.UserContext(), middleware.Session(c), id, in)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not update customer %s", id), err)
	}
	return c.JSON(customer)
}

func (h *CustomerHandler) HandleDeleteCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteCustomer(c.UserContext(), middleware.Session(c), id); err != nil {
		return respondError(c, fmt.Sprintf("Could not delete customer %s", id), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Customer %s deleted successfully", id),
	})
}
