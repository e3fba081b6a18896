package http

import (
	"time"

	"github.com/creator-marketplace/backend/internal/config"
	"github.com/creator-marketplace/backend/internal/http/handlers"
	"github.com/creator-marketplace/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	webhookHandler *handlers.WebhookHandler,
	orderHandler *handlers.OrderHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Razorpay-Signature",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Razorpay webhook — signature-gated, no bearer auth
	app.Post("/", webhookHandler.HandleRazorpay)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Internal read surface
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/orders/:id/finance", orderHandler.GetFinance)
	protected.Get("/orders/:id/timeline", orderHandler.GetTimeline)
	protected.Get("/orders/:id/payments", middleware.RequireRole("admin"), orderHandler.GetPayments)
}
