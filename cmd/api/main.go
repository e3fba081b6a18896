package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creator-marketplace/backend/internal/config"
	"github.com/creator-marketplace/backend/internal/db"
	"github.com/creator-marketplace/backend/internal/events"
	apphttp "github.com/creator-marketplace/backend/internal/http"
	"github.com/creator-marketplace/backend/internal/http/handlers"
	"github.com/creator-marketplace/backend/internal/idempotency"
	"github.com/creator-marketplace/backend/internal/repositories"
	"github.com/creator-marketplace/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, os.DirFS("migrations"), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	orderRepo := repositories.NewOrderRepo(pool)
	financeRepo := repositories.NewFinanceRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	chatRepo := repositories.NewChatRepo(pool)
	timelineRepo := repositories.NewTimelineRepo(pool)

	// Events + idempotency
	publisher := events.NewRedisPublisher(rdb, log)
	guard := idempotency.NewRedisGuard(rdb, log)

	// Services
	reconcileService := services.NewReconcileService(
		services.NewPoolBeginner(pool),
		orderRepo, financeRepo, paymentRepo, roleRepo, chatRepo, timelineRepo,
		guard, publisher, cfg, log,
	)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(reconcileService, cfg, log)
	orderHandler := handlers.NewOrderHandler(orderRepo, financeRepo, paymentRepo, timelineRepo, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, webhookHandler, orderHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
