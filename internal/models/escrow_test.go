package models

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTransactionTypeString(t *testing.T) {
	if got := TxFromHotWallet.String(); got != "FROM_HOTWALLET" {
		t.Fatalf("TxFromHotWallet.String() = %q", got)
	}
	if got := TransactionType(7).String(); got != "UNKNOWN(7)" {
		t.Fatalf("TransactionType(7).String() = %q", got)
	}
}

func TestIsNative(t *testing.T) {
	e := &Escrow{}
	if !e.IsNative() {
		t.Fatal("zero token address not treated as native")
	}
	e.TokenAddress = common.HexToAddress("0x5000000000000000000000000000000000000005")
	if e.IsNative() {
		t.Fatal("token escrow reported native")
	}
}

func TestHasResolvedReceiver(t *testing.T) {
	e := &Escrow{}
	if e.HasResolvedReceiver() {
		t.Fatal("zero receiver reported resolved")
	}
	e.Receiver = common.HexToAddress("0x3000000000000000000000000000000000000003")
	if !e.HasResolvedReceiver() {
		t.Fatal("set receiver reported unresolved")
	}
}

func TestClone(t *testing.T) {
	orig := &Escrow{
		ID:       3,
		Sender:   common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Amount:   big.NewInt(100),
		IsActive: true,
	}

	clone := orig.Clone()
	clone.Amount.SetInt64(999)
	clone.IsActive = false

	if orig.Amount.Int64() != 100 {
		t.Fatalf("clone shares amount: %s", orig.Amount)
	}
	if !orig.IsActive {
		t.Fatal("clone shares flags")
	}

	var nilEscrow *Escrow
	if nilEscrow.Clone() != nil {
		t.Fatal("nil clone not nil")
	}

	noAmount := &Escrow{ID: 1}
	if got := noAmount.Clone().Amount; got == nil || got.Sign() != 0 {
		t.Fatalf("nil amount clone = %v, want 0", got)
	}
}
