package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
	"github.com/eat-the-tokyo/3tree-escrow/internal/http/handlers"
	"github.com/eat-the-tokyo/3tree-escrow/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	roleHandler *handlers.RoleHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/login", authHandler.Login)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Meta (public, no auth required)
	api.Get("/roles", roleHandler.WellKnown)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Escrows
	protected.Post("/escrows", escrowHandler.Create)
	protected.Get("/escrows/:id", escrowHandler.Get)
	protected.Get("/escrows/:id/audit", escrowHandler.AuditTrail)
	protected.Post("/escrows/:id/claim", escrowHandler.Claim)
	protected.Post("/escrows/:id/refund", escrowHandler.Refund)

	// Roles
	protected.Get("/roles/:role/accounts/:account", roleHandler.HasRole)
	protected.Post("/roles/grant", roleHandler.Grant)
	protected.Post("/roles/revoke", roleHandler.Revoke)

	// Custody balances
	protected.Get("/custody/:asset/:account", escrowHandler.Balance)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
