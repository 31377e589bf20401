package routes

import (
	"log/slog"
	"time"

	"creditflow/internal/adapters/http/handlers"
	"creditflow/internal/adapters/http/middleware"
	"creditflow/internal/config"
	"creditflow/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, cfg *config.Config, creditService services.CreditRequestService, checks map[string]handlers.Checker, log *slog.Logger) {
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, checks)
	creditHandler := handlers.NewCreditHandler(creditService, log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(time.Hour), swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	setupCreditRoutes(apiV1.Group("/credit"), creditHandler, cfg)
}

// setupCreditRoutes configures credit request routes
func setupCreditRoutes(router fiber.Router, h *handlers.CreditHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	router.Use(middleware.NoStore())

	router.Post("/request", middleware.IntakeRateLimiter(), h.Create)
	router.Post("/evaluate/:id", middleware.OperatorOnly(cfg.JWT.Secret), h.Evaluate)
	router.Get("/", h.List)
	router.Get("/:id", h.Get)
}
