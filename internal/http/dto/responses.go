package dto

import (
	"time"

	"github.com/eat-the-tokyo/3tree-escrow/internal/models"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AuthNonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"` // exact text to sign
}

type AuthResponse struct {
	Token string `json:"token"`
}

type CreateEscrowResponse struct {
	EscrowID uint64 `json:"escrow_id"`
}

// EscrowResponse is the wire form of a record; amounts are decimal strings so
// 256-bit values survive JSON.
type EscrowResponse struct {
	EscrowID        uint64    `json:"escrow_id"`
	Sender          string    `json:"sender"`
	SenderSNSID     string    `json:"sender_sns_id"`
	Receiver        string    `json:"receiver"`
	ReceiverSNSID   string    `json:"receiver_sns_id"`
	Hash            string    `json:"hash"`
	Amount          string    `json:"amount"`
	TokenAddress    string    `json:"token_address"`
	Expiration      int64     `json:"expiration"`
	IsActive        bool      `json:"is_active"`
	IsClaimed       bool      `json:"is_claimed"`
	WrapperType     string    `json:"wrapper_type"`
	TransactionType string    `json:"transaction_type"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewEscrowResponse(e *models.Escrow) EscrowResponse {
	return EscrowResponse{
		EscrowID:        e.ID,
		Sender:          e.Sender.Hex(),
		SenderSNSID:     e.SenderSNSID,
		Receiver:        e.Receiver.Hex(),
		ReceiverSNSID:   e.ReceiverSNSID,
		Hash:            e.Hash,
		Amount:          e.Amount.String(),
		TokenAddress:    e.TokenAddress.Hex(),
		Expiration:      e.Expiration,
		IsActive:        e.IsActive,
		IsClaimed:       e.IsClaimed,
		WrapperType:     e.WrapperType,
		TransactionType: e.TransactionType.String(),
		CreatedAt:       e.CreatedAt,
	}
}

type HasRoleResponse struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	HasRole bool   `json:"has_role"`
}

type WellKnownRolesResponse struct {
	DefaultAdminRole string `json:"default_admin_role"`
	RelayerRole      string `json:"relayer_role"`
}

type BalanceResponse struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}
