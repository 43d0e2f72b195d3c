package models

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionType records which funding channel produced an escrow. The set is
// open-ended: custodial channels mint their own values, this service only ever
// produces FROM_HOTWALLET.
type TransactionType uint8

const (
	TxFromHotWallet TransactionType = 0
)

func (t TransactionType) String() string {
	switch t {
	case TxFromHotWallet:
		return "FROM_HOTWALLET"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Escrow is a single custody record. Ids are dense, zero-based and never
// reused; records are never deleted, resolved escrows stay for audit.
type Escrow struct {
	ID              uint64          `json:"escrow_id"`
	Sender          common.Address  `json:"sender"`
	SenderSNSID     string          `json:"sender_sns_id"`
	Receiver        common.Address  `json:"receiver"`
	ReceiverSNSID   string          `json:"receiver_sns_id"`
	Hash            string          `json:"hash"`
	Amount          *big.Int        `json:"amount"`
	TokenAddress    common.Address  `json:"token_address"`
	Expiration      int64           `json:"expiration"`
	IsActive        bool            `json:"is_active"`
	IsClaimed       bool            `json:"is_claimed"`
	WrapperType     string          `json:"wrapper_type"`
	TransactionType TransactionType `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsNative reports whether the escrow holds the chain's native asset
// (token address is the zero address).
func (e *Escrow) IsNative() bool {
	return e.TokenAddress == (common.Address{})
}

// HasResolvedReceiver reports whether the receiver address was known at
// creation time. Unresolved escrows are claimed against the commitment hash.
func (e *Escrow) HasResolvedReceiver() bool {
	return e.Receiver != (common.Address{})
}

// Clone returns a deep copy so callers can mutate freely without touching
// the stored record.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}
