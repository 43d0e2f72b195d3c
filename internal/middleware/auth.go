package middleware

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/auth"
	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
)

const CtxCallerAddress = "caller_address"

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxCallerAddress, common.HexToAddress(claims.Address))

		return c.Next()
	}
}

// GetCallerAddress returns the authenticated on-chain identity of the caller.
func GetCallerAddress(c *fiber.Ctx) common.Address {
	addr, _ := c.Locals(CtxCallerAddress).(common.Address)
	return addr
}
