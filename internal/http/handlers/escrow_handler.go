package handlers

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/custody"
	"github.com/eat-the-tokyo/3tree-escrow/internal/escrow"
	"github.com/eat-the-tokyo/3tree-escrow/internal/http/dto"
	"github.com/eat-the-tokyo/3tree-escrow/internal/middleware"
	"github.com/eat-the-tokyo/3tree-escrow/internal/models"
	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
)

// AuditReader fetches the audit trail of an entity.
type AuditReader interface {
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error)
}

type EscrowHandler struct {
	service *escrow.Service
	audit   AuditReader
	log     *zap.Logger
}

func NewEscrowHandler(service *escrow.Service, audit AuditReader, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{service: service, audit: audit, log: log}
}

// Create handles createEscrowFromHotWallet. The authenticated caller is the
// sender; the attached native value rides in the value field.
func (h *EscrowHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid amount"})
	}
	value := big.NewInt(0)
	if req.Value != "" {
		if value, ok = parseAmount(req.Value); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid value"})
		}
	}
	receiver, ok := parseOptionalAddress(req.Receiver)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid receiver address"})
	}
	token, ok := parseOptionalAddress(req.TokenAddress)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid token address"})
	}

	id, err := h.service.CreateFromHotWallet(c.Context(), escrow.CreateParams{
		Sender:        middleware.GetCallerAddress(c),
		SenderSNSID:   req.SenderSNSID,
		Hash:          req.Hash,
		Receiver:      receiver,
		ReceiverSNSID: req.ReceiverSNSID,
		Amount:        amount,
		TokenAddress:  token,
		Expiration:    req.Expiration,
		WrapperType:   req.WrapperType,
		Value:         value,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.CreateEscrowResponse{EscrowID: id}})
}

func (h *EscrowHandler) Claim(c *fiber.Ctx) error {
	id, err := parseEscrowID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	var req dto.ClaimEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if !common.IsHexAddress(req.Claimant) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid claimant address"})
	}
	proof, err := hex.DecodeString(strings.TrimPrefix(req.Proof, "0x"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "proof must be hex"})
	}

	caller := middleware.GetCallerAddress(c)
	if err := h.service.Claim(c.Context(), caller, id, common.HexToAddress(req.Claimant), proof); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	id, err := parseEscrowID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	caller := middleware.GetCallerAddress(c)
	if err := h.service.Refund(c.Context(), caller, id); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

// Get is the escrows(escrowId) accessor.
func (h *EscrowHandler) Get(c *fiber.Ctx) error {
	id, err := parseEscrowID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	rec, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEscrowResponse(rec)})
}

// AuditTrail lists audit entries recorded for an escrow, newest first.
func (h *EscrowHandler) AuditTrail(c *fiber.Ctx) error {
	id, err := parseEscrowID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}
	if _, err := h.service.Get(c.Context(), id); err != nil {
		return h.fail(c, err)
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	entries, err := h.audit.GetByEntity(c.Context(), "escrow", strconv.FormatUint(id, 10), limit, offset)
	if err != nil {
		h.log.Error("audit trail query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *EscrowHandler) Balance(c *fiber.Ctx) error {
	var asset common.Address
	if raw := c.Params("asset"); raw != "native" {
		var ok bool
		if asset, ok = parseOptionalAddress(raw); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid asset address"})
		}
	}
	if !common.IsHexAddress(c.Params("account")) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid account address"})
	}
	account := common.HexToAddress(c.Params("account"))

	bal, err := h.service.Balance(c.Context(), asset, account)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{
		Asset:   asset.Hex(),
		Account: account.Hex(),
		Balance: bal.String(),
	}})
}

// fail maps state-machine errors onto HTTP statuses and stable codes.
func (h *EscrowHandler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	code := ""
	switch {
	case errors.Is(err, rbac.ErrUnauthorized):
		status, code = fiber.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, escrow.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, escrow.ErrAlreadyResolved):
		status, code = fiber.StatusConflict, "ALREADY_RESOLVED"
	case errors.Is(err, escrow.ErrExpired):
		status, code = fiber.StatusConflict, "EXPIRED"
	case errors.Is(err, escrow.ErrStillActive):
		status, code = fiber.StatusConflict, "STILL_ACTIVE"
	case errors.Is(err, escrow.ErrProofMismatch):
		status, code = fiber.StatusForbidden, "PROOF_MISMATCH"
	case errors.Is(err, custody.ErrAmountMismatch):
		status, code = fiber.StatusBadRequest, "AMOUNT_MISMATCH"
	case errors.Is(err, custody.ErrTransferFailed):
		status, code = fiber.StatusBadGateway, "TRANSFER_FAILED"
	default:
		h.log.Debug("escrow operation rejected", zap.Error(err))
	}
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), Code: code, RequestID: reqID})
}

func parseEscrowID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// parseOptionalAddress treats empty as the zero address.
func parseOptionalAddress(s string) (common.Address, bool) {
	if strings.TrimSpace(s) == "" {
		return common.Address{}, true
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
