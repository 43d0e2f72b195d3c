package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
)

// RoleRepo is the postgres-backed rbac.Store.
type RoleRepo struct {
	pool *pgxpool.Pool
}

var _ rbac.Store = (*RoleRepo)(nil)

func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

func (r *RoleRepo) Has(ctx context.Context, role common.Hash, account common.Address) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM role_members WHERE role = $1 AND account = $2)
	`, role.Hex(), account.Hex()).Scan(&exists)
	return exists, err
}

func (r *RoleRepo) Add(ctx context.Context, role common.Hash, account common.Address) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_members (role, account) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, role.Hex(), account.Hex())
	return err
}

func (r *RoleRepo) Remove(ctx context.Context, role common.Hash, account common.Address) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_members WHERE role = $1 AND account = $2
	`, role.Hex(), account.Hex())
	return err
}
