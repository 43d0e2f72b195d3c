package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
	"github.com/eat-the-tokyo/3tree-escrow/internal/db"
	"github.com/eat-the-tokyo/3tree-escrow/internal/escrow"
	"github.com/eat-the-tokyo/3tree-escrow/internal/events"
	apphttp "github.com/eat-the-tokyo/3tree-escrow/internal/http"
	"github.com/eat-the-tokyo/3tree-escrow/internal/http/handlers"
	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
	"github.com/eat-the-tokyo/3tree-escrow/internal/repositories"
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
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	escrowStore := repositories.NewEscrowStore(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Access control
	registry := rbac.NewRegistry(roleRepo, log)
	if operator := cfg.Operator(); operator != (common.Address{}) {
		if err := registry.Bootstrap(ctx, operator); err != nil {
			log.Fatal("failed to bootstrap operator roles", zap.Error(err))
		}
	}

	// Settlement service
	verifier, err := escrow.NewVerifier(cfg.ProofScheme)
	if err != nil {
		log.Fatal("invalid proof scheme", zap.Error(err))
	}
	service := escrow.NewService(escrowStore, registry, verifier, publisher, auditRepo, escrow.Policy{
		AllowDirectClaim: cfg.AllowDirectClaim,
		AdminEarlyRefund: cfg.AdminEarlyRefund,
	}, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(rdb, cfg, log)
	escrowHandler := handlers.NewEscrowHandler(service, auditRepo, log)
	roleHandler := handlers.NewRoleHandler(registry, publisher, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

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

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, roleHandler, wsHub)

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
