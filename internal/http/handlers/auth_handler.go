package handlers

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/auth"
	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
	"github.com/eat-the-tokyo/3tree-escrow/internal/http/dto"
)

type AuthHandler struct {
	rdb *redis.Client
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(rdb *redis.Client, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{rdb: rdb, cfg: cfg, log: log}
}

func nonceKey(address common.Address) string {
	return fmt.Sprintf("auth:nonce:%s", strings.ToLower(address.Hex()))
}

// Nonce hands out a single-use login nonce for an address.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.AuthNonceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !common.IsHexAddress(req.Address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid address"})
	}
	addr := common.HexToAddress(req.Address)

	nonce := uuid.New().String()
	if err := h.rdb.Set(c.Context(), nonceKey(addr), nonce, h.cfg.NonceTTL).Err(); err != nil {
		h.log.Error("failed to store nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthNonceResponse{
		Nonce:   nonce,
		Message: auth.LoginMessage(addr, nonce),
	})
}

// Login verifies a personal-sign signature over the nonce message and issues
// a session token bound to the address. The nonce is consumed on first use.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AuthLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !common.IsHexAddress(req.Address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid address"})
	}
	addr := common.HexToAddress(req.Address)

	nonce, err := h.rdb.GetDel(c.Context(), nonceKey(addr)).Result()
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unknown or expired nonce, request a new one"})
	}

	if err := auth.VerifyLoginSignature(addr, nonce, req.Signature); err != nil {
		h.log.Debug("login signature rejected", zap.String("address", addr.Hex()), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "signature verification failed"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, addr, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{Token: token})
}
