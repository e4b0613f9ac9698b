// Package server assembles the HTTP application from its collaborators.
package server

import (
	"inventory/internal/cache"
	"inventory/internal/config"
	"inventory/internal/events"
	"inventory/internal/handlers"
	"inventory/internal/metrics"
	"inventory/internal/middleware"
	"inventory/internal/repositories"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the application is built from. Cache,
// Publisher and Metrics may be nil.
type Deps struct {
	Store     *repositories.Store
	Cache     cache.ProductCache
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

// Server is the assembled application.
type Server struct {
	App      *fiber.App
	Auth     *services.AuthService
	Products *services.ProductService
}

// New wires services and handlers and registers every route.
func New(cfg *config.Config, deps Deps) *Server {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	store := deps.Store

	authService := services.NewAuthService(store.Users, cfg.JWTSecret, cfg.TokenTTL)
	productService := services.NewProductService(store.Products, deps.Cache, m, cfg.LowStockThreshold)
	customerService := services.NewCustomerService(store.Customers)
	purchaseService := services.NewPurchaseService(store, deps.Cache, deps.Publisher, m)

	app := fiber.New(fiber.Config{AppName: "inventory"})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	requireAuth := middleware.AuthRequired(authService)
	api := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(api, requireAuth)

	handlers.NewProductHandler(productService).RegisterRoutes(api, requireAuth)
	handlers.NewCustomerHandler(customerService).RegisterRoutes(api, requireAuth)
	handlers.NewPurchaseHandler(purchaseService).RegisterRoutes(api, requireAuth)

	return &Server{App: app, Auth: authService, Products: productService}
}
