package escrow

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/custody"
	"github.com/eat-the-tokyo/3tree-escrow/internal/events"
	"github.com/eat-the-tokyo/3tree-escrow/internal/models"
	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
)

// Auditor appends an audit trail entry. Logging is best effort and never
// blocks a settlement.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// Policy fixes the deployment-level choices the contract leaves open.
type Policy struct {
	// AllowDirectClaim lets a resolved receiver claim without the relayer.
	AllowDirectClaim bool
	// AdminEarlyRefund lets admin-role holders refund before expiration.
	AdminEarlyRefund bool
}

// Service is the escrow state machine. Each record moves Active -> Claimed or
// Active -> Refunded exactly once; all validation happens before any side
// effect and every operation commits or aborts as a whole.
type Service struct {
	store     Store
	registry  *rbac.Registry
	adapter   custody.Adapter
	verifier  Verifier
	publisher events.Publisher
	audit     Auditor
	policy    Policy
	log       *zap.Logger
	nowFn     func() int64
}

func NewService(
	store Store,
	registry *rbac.Registry,
	verifier Verifier,
	publisher events.Publisher,
	audit Auditor,
	policy Policy,
	log *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		registry:  registry,
		adapter:   custody.NewAdapter(),
		verifier:  verifier,
		publisher: publisher,
		audit:     audit,
		policy:    policy,
		log:       log,
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source. Tests use it for deterministic
// expiration windows.
func (s *Service) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
}

// CreateParams carries a createEscrowFromHotWallet request. Sender is the
// caller's authenticated address; Value models the native payment attached to
// the call.
type CreateParams struct {
	Sender        common.Address
	SenderSNSID   string
	Hash          string
	Receiver      common.Address
	ReceiverSNSID string
	Amount        *big.Int
	TokenAddress  common.Address
	Expiration    int64
	WrapperType   string
	Value         *big.Int
}

// CreateFromHotWallet funds a new escrow from the sender's own identity and
// returns its id. Exactly one asset transfer into custody and one ledger
// append happen, or neither.
func (s *Service) CreateFromHotWallet(ctx context.Context, p CreateParams) (uint64, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	now := s.now()
	if p.Expiration <= now {
		return 0, fmt.Errorf("expiration must be in the future")
	}

	rec := &models.Escrow{
		Sender:          p.Sender,
		SenderSNSID:     p.SenderSNSID,
		Receiver:        p.Receiver,
		ReceiverSNSID:   p.ReceiverSNSID,
		Hash:            p.Hash,
		Amount:          new(big.Int).Set(p.Amount),
		TokenAddress:    p.TokenAddress,
		Expiration:      p.Expiration,
		IsActive:        true,
		IsClaimed:       false,
		WrapperType:     p.WrapperType,
		TransactionType: models.TxFromHotWallet,
		CreatedAt:       time.Unix(now, 0).UTC(),
	}

	var id uint64
	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := s.adapter.Deposit(ctx, tx, p.TokenAddress, p.Sender, p.Amount, p.Value); err != nil {
			return err
		}
		var err error
		id, err = tx.AppendEscrow(ctx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("escrow created",
		zap.Uint64("escrow_id", id),
		zap.String("sender", p.Sender.Hex()),
		zap.String("amount", p.Amount.String()),
		zap.String("token", p.TokenAddress.Hex()),
		zap.Int64("expiration", p.Expiration),
	)
	s.auditLog(ctx, &p.Sender, "user", "escrow_created", id, map[string]any{
		"amount": p.Amount.String(), "wrapper_type": p.WrapperType,
	})
	s.publish(ctx, events.EventEscrowCreated, id, map[string]any{
		"sender": p.Sender.Hex(), "amount": p.Amount.String(),
	})
	return id, nil
}

// Claim releases an active, unexpired escrow to claimant. Relayer-gated; a
// resolved receiver may self-claim only if the deployment allows it. The
// proof is checked against the commitment hash when the receiver was
// unresolved at creation.
func (s *Service) Claim(ctx context.Context, caller common.Address, id uint64, claimant common.Address, proof []byte) error {
	isRelayer, err := s.registry.HasRole(ctx, rbac.RelayerRole, caller)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !isRelayer && !s.policy.AllowDirectClaim {
		return rbac.ErrUnauthorized
	}

	var resolved *models.Escrow
	err = s.store.InTx(ctx, func(tx Tx) error {
		rec, err := tx.LockEscrow(ctx, id)
		if err != nil {
			return err
		}
		if !isRelayer {
			// Direct claim: only the recorded receiver, and only once
			// the receiver is resolved.
			if !rec.HasResolvedReceiver() || caller != rec.Receiver {
				return rbac.ErrUnauthorized
			}
		}
		if !rec.IsActive {
			return ErrAlreadyResolved
		}
		if s.now() >= rec.Expiration {
			return ErrExpired
		}
		if rec.HasResolvedReceiver() {
			if claimant != rec.Receiver {
				return ErrProofMismatch
			}
		} else if !s.verifier.Verify(rec.Hash, proof) {
			return ErrProofMismatch
		}
		if err := s.adapter.Payout(ctx, tx, rec.TokenAddress, claimant, rec.Amount); err != nil {
			return err
		}
		if err := tx.ResolveEscrow(ctx, id, true); err != nil {
			return err
		}
		resolved = rec
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("escrow claimed",
		zap.Uint64("escrow_id", id),
		zap.String("claimant", claimant.Hex()),
		zap.String("amount", resolved.Amount.String()),
	)
	s.auditLog(ctx, &caller, actorType(isRelayer), "escrow_claimed", id, map[string]any{
		"claimant": claimant.Hex(), "amount": resolved.Amount.String(),
	})
	s.publish(ctx, events.EventEscrowClaimed, id, map[string]any{
		"claimant": claimant.Hex(), "amount": resolved.Amount.String(),
	})
	return nil
}

// Refund returns an escrow's funds to its sender: after expiration for the
// sender or a relayer, before expiration only for an admin when the
// deployment enables early refunds.
func (s *Service) Refund(ctx context.Context, caller common.Address, id uint64) error {
	isRelayer, err := s.registry.HasRole(ctx, rbac.RelayerRole, caller)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	isAdmin := false
	if s.policy.AdminEarlyRefund {
		isAdmin, err = s.registry.HasRole(ctx, rbac.DefaultAdminRole, caller)
		if err != nil {
			return fmt.Errorf("role lookup: %w", err)
		}
	}

	var resolved *models.Escrow
	err = s.store.InTx(ctx, func(tx Tx) error {
		rec, err := tx.LockEscrow(ctx, id)
		if err != nil {
			return err
		}
		if !isRelayer && caller != rec.Sender && !isAdmin {
			return rbac.ErrUnauthorized
		}
		if !rec.IsActive {
			return ErrAlreadyResolved
		}
		if s.now() < rec.Expiration && !isAdmin {
			return ErrStillActive
		}
		if err := s.adapter.Payout(ctx, tx, rec.TokenAddress, rec.Sender, rec.Amount); err != nil {
			return err
		}
		if err := tx.ResolveEscrow(ctx, id, false); err != nil {
			return err
		}
		resolved = rec
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("escrow refunded",
		zap.Uint64("escrow_id", id),
		zap.String("sender", resolved.Sender.Hex()),
		zap.String("amount", resolved.Amount.String()),
	)
	s.auditLog(ctx, &caller, actorType(isRelayer || isAdmin), "escrow_refunded", id, map[string]any{
		"sender": resolved.Sender.Hex(), "amount": resolved.Amount.String(),
	})
	s.publish(ctx, events.EventEscrowRefunded, id, map[string]any{
		"sender": resolved.Sender.Hex(), "amount": resolved.Amount.String(),
	})
	return nil
}

// Get is the read-only record accessor (escrows(escrowId)).
func (s *Service) Get(ctx context.Context, id uint64) (*models.Escrow, error) {
	return s.store.GetEscrow(ctx, id)
}

// Balance reports the custody balance of an account for an asset.
func (s *Service) Balance(ctx context.Context, asset, account common.Address) (*big.Int, error) {
	return s.store.Balance(ctx, asset, account)
}

// SweepExpired refunds up to limit expired active escrows on behalf of the
// operator. Expiration stays a call-time predicate: this is an external
// caller batching refunds, not a scheduler inside the state machine.
func (s *Service) SweepExpired(ctx context.Context, operator common.Address, limit int) (int, error) {
	ids, err := s.store.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	refunded := 0
	for _, id := range ids {
		if err := s.Refund(ctx, operator, id); err != nil {
			// Raced by a claim or another refund: the record resolved
			// between listing and locking, which is fine.
			s.log.Warn("sweep refund skipped", zap.Uint64("escrow_id", id), zap.Error(err))
			continue
		}
		refunded++
	}
	return refunded, nil
}

func (s *Service) now() int64 { return s.nowFn() }

func (s *Service) publish(ctx context.Context, typ string, id uint64, payload map[string]any) {
	payload["escrow_id"] = id
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: typ, Payload: payload})
}

func (s *Service) auditLog(ctx context.Context, actor *common.Address, actorType, action string, id uint64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorAddress: actor,
		ActorType:    actorType,
		Action:       action,
		EntityType:   "escrow",
		EntityID:     fmt.Sprintf("%d", id),
		Meta:         meta,
	})
}

func actorType(privileged bool) string {
	if privileged {
		return "relayer"
	}
	return "user"
}
