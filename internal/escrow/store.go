package escrow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eat-the-tokyo/3tree-escrow/internal/custody"
	"github.com/eat-the-tokyo/3tree-escrow/internal/models"
)

// Store is the persistence boundary of the state machine. InTx runs fn
// against a transactional view and commits only if fn returns nil, so an
// operation either fully applies (record mutation and balance movement) or
// fully aborts.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error

	// GetEscrow returns ErrNotFound for unknown ids. Readers never block
	// writers and observe pre- or post-state of any operation, never an
	// intermediate one.
	GetEscrow(ctx context.Context, id uint64) (*models.Escrow, error)

	// ListExpired returns ids of active escrows whose expiration is at or
	// before now, in id order.
	ListExpired(ctx context.Context, now int64, limit int) ([]uint64, error)

	Balance(ctx context.Context, asset, account common.Address) (*big.Int, error)
}

// Tx is the transactional view handed to state-machine operations. It embeds
// the custody balance mover so value moves commit atomically with the record.
type Tx interface {
	custody.BalanceStore

	// AppendEscrow assigns the next dense, zero-based id and persists the
	// record under it.
	AppendEscrow(ctx context.Context, e *models.Escrow) (uint64, error)

	// LockEscrow loads the record for update, serializing resolution of the
	// same escrow. Returns ErrNotFound for unknown ids.
	LockEscrow(ctx context.Context, id uint64) (*models.Escrow, error)

	// ResolveEscrow flips the record out of the active state exactly once;
	// returns ErrAlreadyResolved if it is no longer active.
	ResolveEscrow(ctx context.Context, id uint64, claimed bool) error
}
