package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrAmountMismatch: the value attached to a native-asset deposit does
	// not equal the declared escrow amount.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrTransferFailed: the underlying balance movement was rejected. The
	// caller's ledger state must stay untouched and the operation retried.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrInsufficientFunds is returned by balance stores on overdraft and is
	// surfaced to callers as ErrTransferFailed.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// NativeAsset is the sentinel for the chain's native currency.
var NativeAsset = common.Address{}

// ModuleVault is the internal account that custodies every escrowed balance.
// Derived from a fixed tag so it can never collide with a caller address.
var ModuleVault = common.BytesToAddress(crypto.Keccak256([]byte("3tree/escrow/vault"))[12:])

// BalanceStore moves value between accounts of the custody ledger. Credit and
// Debit must be applied within the same transaction as the escrow mutation
// they accompany.
type BalanceStore interface {
	Credit(ctx context.Context, asset, account common.Address, amount *big.Int) error
	Debit(ctx context.Context, asset, account common.Address, amount *big.Int) error
}

// Adapter moves value in and out of the module vault. It owns no state: every
// call operates on the BalanceStore of the surrounding transaction, so a
// failed payout rolls back with everything else.
type Adapter struct {
	vault common.Address
}

func NewAdapter() Adapter {
	return Adapter{vault: ModuleVault}
}

func (a Adapter) Vault() common.Address { return a.vault }

// Deposit takes amount of asset into custody. For the native asset the
// attached value is the deposit and must equal amount exactly. For tokens the
// sender's internal balance (funded by a prior allowance transfer) is debited.
func (a Adapter) Deposit(ctx context.Context, store BalanceStore, asset, from common.Address, amount, attached *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit amount must be positive", ErrTransferFailed)
	}
	if asset == NativeAsset {
		if attached == nil || attached.Cmp(amount) != 0 {
			return ErrAmountMismatch
		}
		return store.Credit(ctx, asset, a.vault, amount)
	}
	if attached != nil && attached.Sign() != 0 {
		return ErrAmountMismatch
	}
	if err := store.Debit(ctx, asset, from, amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
		return err
	}
	return store.Credit(ctx, asset, a.vault, amount)
}

// Payout releases amount of asset from custody to recipient.
func (a Adapter) Payout(ctx context.Context, store BalanceStore, asset, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: payout amount must be positive", ErrTransferFailed)
	}
	if err := store.Debit(ctx, asset, a.vault, amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return fmt.Errorf("%w: vault underfunded for %s", ErrTransferFailed, asset.Hex())
		}
		return err
	}
	return store.Credit(ctx, asset, to, amount)
}
