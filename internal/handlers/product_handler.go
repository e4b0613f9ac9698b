package handlers

import (
	"fmt"

	"inventory/internal/catalog"
	"inventory/internal/middleware"
	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the product routes on router behind mw.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, mw ...fiber.Handler) {
	productRoutes := router.Group("/products", mw...)
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/stats", h.HandleProductStats)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleListProducts lists products filtered by ?category= and ?search= and
// ordered by ?sort=.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	q := catalog.Query{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     catalog.ParseSort(c.Query("sort")),
	}
	products, err := h.service.ListProducts(c.UserContext(), middleware.Session(c), q)
	if err != nil {
		return respondError(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleProductStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, "Could not compute product stats", err)
	}
	return c.JSON(stats)
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	product, err := h.service.GetProduct(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve product %s", id), err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), middleware.Session(c), in)
	if err != nil {
		return respondError(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update; absent fields keep their
// stored values.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), middleware.Session(c), id, in)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not update product %s", id), err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(c.UserContext(), middleware.Session(c), id); err != nil {
		return respondError(c, fmt.Sprintf("Could not delete product %s", id), err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", id),
	})
}
