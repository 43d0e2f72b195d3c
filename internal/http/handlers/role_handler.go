package handlers

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/events"
	"github.com/eat-the-tokyo/3tree-escrow/internal/http/dto"
	"github.com/eat-the-tokyo/3tree-escrow/internal/middleware"
	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
)

type RoleHandler struct {
	registry  *rbac.Registry
	publisher events.Publisher
	log       *zap.Logger
}

func NewRoleHandler(registry *rbac.Registry, publisher events.Publisher, log *zap.Logger) *RoleHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RoleHandler{registry: registry, publisher: publisher, log: log}
}

// WellKnown lists the role ids the service ships with.
func (h *RoleHandler) WellKnown(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.WellKnownRolesResponse{
		DefaultAdminRole: rbac.DefaultAdminRole.Hex(),
		RelayerRole:      rbac.RelayerRole.Hex(),
	}})
}

func (h *RoleHandler) HasRole(c *fiber.Ctx) error {
	role, err := rbac.RoleByName(c.Params("role"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if !common.IsHexAddress(c.Params("account")) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid account address"})
	}
	account := common.HexToAddress(c.Params("account"))

	ok, err := h.registry.HasRole(c.Context(), role, account)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "role lookup failed"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.HasRoleResponse{
		Role:    role.Hex(),
		Account: account.Hex(),
		HasRole: ok,
	}})
}

func (h *RoleHandler) Grant(c *fiber.Ctx) error {
	return h.change(c, true)
}

func (h *RoleHandler) Revoke(c *fiber.Ctx) error {
	return h.change(c, false)
}

func (h *RoleHandler) change(c *fiber.Ctx, grant bool) error {
	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	role, err := rbac.RoleByName(req.Role)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if !common.IsHexAddress(req.Account) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid account address"})
	}
	account := common.HexToAddress(req.Account)
	caller := middleware.GetCallerAddress(c)

	eventType := events.EventRoleGranted
	if grant {
		err = h.registry.GrantRole(c.Context(), caller, role, account)
	} else {
		err = h.registry.RevokeRole(c.Context(), caller, role, account)
		eventType = events.EventRoleRevoked
	}
	if err != nil {
		if errors.Is(err, rbac.ErrUnauthorized) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "admin role required", Code: "UNAUTHORIZED"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "role update failed"})
	}

	if err := h.publisher.Publish(c.Context(), events.StreamRoles, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"role":    role.Hex(),
			"account": account.Hex(),
			"caller":  caller.Hex(),
		},
	}); err != nil {
		h.log.Warn("role event publish failed", zap.Error(err))
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}
