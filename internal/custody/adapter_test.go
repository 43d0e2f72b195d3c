package custody

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type fakeStore struct {
	balances map[string]*big.Int
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[string]*big.Int)}
}

func (s *fakeStore) key(asset, account common.Address) string {
	return asset.Hex() + "|" + account.Hex()
}

func (s *fakeStore) set(asset, account common.Address, amount int64) {
	s.balances[s.key(asset, account)] = big.NewInt(amount)
}

func (s *fakeStore) get(asset, account common.Address) *big.Int {
	if b, ok := s.balances[s.key(asset, account)]; ok {
		return b
	}
	return big.NewInt(0)
}

func (s *fakeStore) Credit(_ context.Context, asset, account common.Address, amount *big.Int) error {
	s.balances[s.key(asset, account)] = new(big.Int).Add(s.get(asset, account), amount)
	return nil
}

func (s *fakeStore) Debit(_ context.Context, asset, account common.Address, amount *big.Int) error {
	cur := s.get(asset, account)
	if cur.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	s.balances[s.key(asset, account)] = new(big.Int).Sub(cur, amount)
	return nil
}

var (
	alice = common.HexToAddress("0xa000000000000000000000000000000000000001")
	erc20 = common.HexToAddress("0xe000000000000000000000000000000000000002")
)

func TestDepositNative(t *testing.T) {
	a := NewAdapter()
	store := newFakeStore()

	err := a.Deposit(context.Background(), store, NativeAsset, alice, big.NewInt(100), big.NewInt(100))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := store.get(NativeAsset, a.Vault()); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("vault balance = %s, want 100", got)
	}
}

func TestDepositNativeMismatch(t *testing.T) {
	a := NewAdapter()
	store := newFakeStore()

	tests := []struct {
		name     string
		attached *big.Int
	}{
		{"less", big.NewInt(99)},
		{"more", big.NewInt(101)},
		{"nil", nil},
		{"zero", big.NewInt(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Deposit(context.Background(), store, NativeAsset, alice, big.NewInt(100), tt.attached)
			if !errors.Is(err, ErrAmountMismatch) {
				t.Fatalf("err = %v, want ErrAmountMismatch", err)
			}
		})
	}
	if got := store.get(NativeAsset, a.Vault()); got.Sign() != 0 {
		t.Fatalf("vault credited on failed deposit: %s", got)
	}
}

func TestDepositToken(t *testing.T) {
	a := NewAdapter()
	store := newFakeStore()
	store.set(erc20, alice, 500)

	if err := a.Deposit(context.Background(), store, erc20, alice, big.NewInt(200), nil); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := store.get(erc20, alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("sender balance = %s, want 300", got)
	}
	if got := store.get(erc20, a.Vault()); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("vault balance = %s, want 200", got)
	}

	// Attaching native value to a token deposit is a mismatch.
	err := a.Deposit(context.Background(), store, erc20, alice, big.NewInt(100), big.NewInt(1))
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}
}

func TestDepositTokenInsufficient(t *testing.T) {
	a := NewAdapter()
	store := newFakeStore()
	store.set(erc20, alice, 50)

	err := a.Deposit(context.Background(), store, erc20, alice, big.NewInt(200), nil)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	if got := store.get(erc20, alice); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("sender balance = %s, want 50", got)
	}
}

func TestPayout(t *testing.T) {
	a := NewAdapter()
	store := newFakeStore()
	store.set(erc20, a.Vault(), 300)

	if err := a.Payout(context.Background(), store, erc20, alice, big.NewInt(300)); err != nil {
		t.Fatalf("payout: %v", err)
	}
	if got := store.get(erc20, alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("recipient balance = %s, want 300", got)
	}

	// Vault is now empty; further payouts fail without touching balances.
	err := a.Payout(context.Background(), store, erc20, alice, big.NewInt(1))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}
	if got := store.get(erc20, alice); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("recipient balance changed: %s", got)
	}
}

func TestVaultIsNotACallerAddress(t *testing.T) {
	if ModuleVault == (common.Address{}) {
		t.Fatal("vault collides with the native asset sentinel")
	}
}
