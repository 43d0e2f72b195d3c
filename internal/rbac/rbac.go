package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned whenever a caller lacks the role an operation
// requires. It is checked before any state is touched.
var ErrUnauthorized = errors.New("unauthorized")

// Role identifiers, 32-byte values matching the on-chain convention: the
// admin role is the zero hash, every other role is the keccak256 of its name.
var (
	DefaultAdminRole = common.Hash{}
	RelayerRole      = crypto.Keccak256Hash([]byte("RELAYER_ROLE"))
)

// RoleByName resolves the role ids this service knows about. Unknown names
// fall through to hex parsing so future roles can be addressed by id.
func RoleByName(name string) (common.Hash, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEFAULT_ADMIN_ROLE", "ADMIN":
		return DefaultAdminRole, nil
	case "RELAYER_ROLE", "RELAYER":
		return RelayerRole, nil
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), "0x")
	if len(trimmed) == 64 {
		return common.HexToHash(trimmed), nil
	}
	return common.Hash{}, fmt.Errorf("unknown role %q", name)
}

// Store persists role memberships. Membership reads are pure; Add and Remove
// are idempotent.
type Store interface {
	Has(ctx context.Context, role common.Hash, account common.Address) (bool, error)
	Add(ctx context.Context, role common.Hash, account common.Address) error
	Remove(ctx context.Context, role common.Hash, account common.Address) error
}

// Registry is the access-control component consulted by every privileged
// operation. Grant and revoke are themselves gated on the admin role.
type Registry struct {
	store Store
	log   *zap.Logger
}

func NewRegistry(store Store, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, log: log}
}

func (r *Registry) HasRole(ctx context.Context, role common.Hash, account common.Address) (bool, error) {
	return r.store.Has(ctx, role, account)
}

// RequireRole returns ErrUnauthorized unless account holds role.
func (r *Registry) RequireRole(ctx context.Context, role common.Hash, account common.Address) error {
	ok, err := r.store.Has(ctx, role, account)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (r *Registry) GrantRole(ctx context.Context, caller common.Address, role common.Hash, account common.Address) error {
	if err := r.RequireRole(ctx, DefaultAdminRole, caller); err != nil {
		return err
	}
	if err := r.store.Add(ctx, role, account); err != nil {
		return err
	}
	r.log.Info("role granted",
		zap.String("role", role.Hex()),
		zap.String("account", account.Hex()),
		zap.String("granted_by", caller.Hex()),
	)
	return nil
}

func (r *Registry) RevokeRole(ctx context.Context, caller common.Address, role common.Hash, account common.Address) error {
	if err := r.RequireRole(ctx, DefaultAdminRole, caller); err != nil {
		return err
	}
	if err := r.store.Remove(ctx, role, account); err != nil {
		return err
	}
	r.log.Info("role revoked",
		zap.String("role", role.Hex()),
		zap.String("account", account.Hex()),
		zap.String("revoked_by", caller.Hex()),
	)
	return nil
}

// Bootstrap grants the operator both the admin and relayer roles. It runs at
// startup, before any caller-gated path.
func (r *Registry) Bootstrap(ctx context.Context, operator common.Address) error {
	if operator == (common.Address{}) {
		return fmt.Errorf("operator address not configured")
	}
	if err := r.store.Add(ctx, DefaultAdminRole, operator); err != nil {
		return err
	}
	if err := r.store.Add(ctx, RelayerRole, operator); err != nil {
		return err
	}
	r.log.Info("operator bootstrapped", zap.String("operator", operator.Hex()))
	return nil
}
