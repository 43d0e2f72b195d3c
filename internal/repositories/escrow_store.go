package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eat-the-tokyo/3tree-escrow/internal/custody"
	"github.com/eat-the-tokyo/3tree-escrow/internal/escrow"
	"github.com/eat-the-tokyo/3tree-escrow/internal/models"
)

// EscrowStore is the postgres implementation of escrow.Store. Operations run
// in a single transaction with the escrow row locked, which serializes
// claim/refund races on the same record: the loser of the race observes the
// resolved row and fails cleanly.
type EscrowStore struct {
	pool *pgxpool.Pool
}

var _ escrow.Store = (*EscrowStore)(nil)

func NewEscrowStore(pool *pgxpool.Pool) *EscrowStore {
	return &EscrowStore{pool: pool}
}

func (s *EscrowStore) InTx(ctx context.Context, fn func(escrow.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&escrowTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const escrowColumns = `escrow_id, sender, sender_sns_id, receiver, receiver_sns_id, hash,
	       amount::text, token_address, expiration, is_active, is_claimed,
	       wrapper_type, transaction_type, created_at`

func (s *EscrowStore) GetEscrow(ctx context.Context, id uint64) (*models.Escrow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows WHERE escrow_id = $1
	`, int64(id))
	return scanEscrow(row)
}

func (s *EscrowStore) ListExpired(ctx context.Context, now int64, limit int) ([]uint64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT escrow_id FROM escrows
		WHERE is_active AND expiration <= $1
		ORDER BY escrow_id LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (s *EscrowStore) Balance(ctx context.Context, asset, account common.Address) (*big.Int, error) {
	return queryBalance(ctx, s.pool, asset, account)
}

type escrowTx struct {
	tx pgx.Tx
}

func (t *escrowTx) AppendEscrow(ctx context.Context, e *models.Escrow) (uint64, error) {
	// The table lock keeps MAX(escrow_id)+1 race free, so ids stay dense and
	// strictly increasing even under concurrent creations.
	if _, err := t.tx.Exec(ctx, `LOCK TABLE escrows IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, err
	}
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO escrows (escrow_id, sender, sender_sns_id, receiver, receiver_sns_id, hash,
		                     amount, token_address, expiration, is_active, is_claimed,
		                     wrapper_type, transaction_type)
		SELECT COALESCE(MAX(escrow_id) + 1, 0), $1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12
		FROM escrows
		RETURNING escrow_id
	`, e.Sender.Hex(), e.SenderSNSID, e.Receiver.Hex(), e.ReceiverSNSID, e.Hash,
		e.Amount.String(), e.TokenAddress.Hex(), e.Expiration, e.IsActive, e.IsClaimed,
		e.WrapperType, int16(e.TransactionType)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append escrow: %w", err)
	}
	e.ID = uint64(id)
	return e.ID, nil
}

func (t *escrowTx) LockEscrow(ctx context.Context, id uint64) (*models.Escrow, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows WHERE escrow_id = $1
		FOR UPDATE
	`, int64(id))
	return scanEscrow(row)
}

func (t *escrowTx) ResolveEscrow(ctx context.Context, id uint64, claimed bool) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE escrows SET is_active = false, is_claimed = $2, resolved_at = now()
		WHERE escrow_id = $1 AND is_active
	`, int64(id), claimed)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return escrow.ErrAlreadyResolved
	}
	return nil
}

func (t *escrowTx) Credit(ctx context.Context, asset, account common.Address, amount *big.Int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO custody_balances (asset, account, balance)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (asset, account)
		DO UPDATE SET balance = custody_balances.balance + EXCLUDED.balance
	`, asset.Hex(), account.Hex(), amount.String())
	return err
}

func (t *escrowTx) Debit(ctx context.Context, asset, account common.Address, amount *big.Int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE custody_balances SET balance = balance - $3::numeric
		WHERE asset = $1 AND account = $2 AND balance >= $3::numeric
	`, asset.Hex(), account.Hex(), amount.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s of asset %s", custody.ErrInsufficientFunds, account.Hex(), asset.Hex())
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryBalance(ctx context.Context, q rowQuerier, asset, account common.Address) (*big.Int, error) {
	var text string
	err := q.QueryRow(ctx, `
		SELECT COALESCE((SELECT balance::text FROM custody_balances WHERE asset = $1 AND account = $2), '0')
	`, asset.Hex(), account.Hex()).Scan(&text)
	if err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", text)
	}
	return bal, nil
}

func scanEscrow(row pgx.Row) (*models.Escrow, error) {
	var (
		e          models.Escrow
		id         int64
		sender     string
		receiver   string
		amount     string
		token      string
		txType     int16
	)
	err := row.Scan(&id, &sender, &e.SenderSNSID, &receiver, &e.ReceiverSNSID, &e.Hash,
		&amount, &token, &e.Expiration, &e.IsActive, &e.IsClaimed,
		&e.WrapperType, &txType, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrNotFound
		}
		return nil, err
	}
	e.ID = uint64(id)
	e.Sender = common.HexToAddress(sender)
	e.Receiver = common.HexToAddress(receiver)
	e.TokenAddress = common.HexToAddress(token)
	e.TransactionType = models.TransactionType(txType)
	var ok bool
	e.Amount, ok = new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}
	return &e, nil
}
