package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"creditflow/internal/adapters/http/handlers"
	"creditflow/internal/adapters/http/middleware"
	"creditflow/internal/adapters/http/routes"
	"creditflow/internal/adapters/messaging"
	"creditflow/internal/app"
	"creditflow/internal/config"
	"creditflow/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	_ "creditflow/docs" // Swagger docs
)

// @title Credit API
// @version 1.0
// @description Credit request intake and automated evaluation API

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg.Log)
	slog.SetDefault(appLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, appLog)
	if err != nil {
		log.Fatalf("❌ Failed to start: %v", err)
	}

	if err := run(ctx, cfg, container); err != nil {
		appLog.Error("❌ server exited with error", "error", err)
		container.Close()
		os.Exit(1)
	}

	if err := container.Close(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, c *app.Container) error {
	// Create Fiber app
	server := fiber.New(fiber.Config{
		AppName:      "Credit API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	middleware.Setup(server, cfg)
	routes.Setup(server, cfg, c.Service, map[string]handlers.Checker{
		"database": c.Store,
		"broker":   c.Gateway,
	}, c.Log)

	var consumer *messaging.RequestConsumer
	if cfg.Consumer.Enabled {
		var gw *messaging.Gateway
		var err error
		consumer, gw, err = c.NewConsumer(ctx)
		if err != nil {
			return err
		}
		defer gw.Close()
	}

	if cfg.Reconcile.Enabled {
		if err := c.Reconcile.Start(); err != nil {
			return err
		}
		defer c.Reconcile.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
		return server.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")
		return server.ShutdownWithTimeout(cfg.Consumer.ShutdownTimeout)
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	return g.Wait()
}
