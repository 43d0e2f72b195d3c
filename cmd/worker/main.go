package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
	"github.com/eat-the-tokyo/3tree-escrow/internal/db"
	"github.com/eat-the-tokyo/3tree-escrow/internal/escrow"
	"github.com/eat-the-tokyo/3tree-escrow/internal/events"
	"github.com/eat-the-tokyo/3tree-escrow/internal/rbac"
	"github.com/eat-the-tokyo/3tree-escrow/internal/repositories"
)

// The worker sweeps expired escrows: any record still active at or past its
// expiration is refunded to its sender on behalf of the operator.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	escrowStore := repositories.NewEscrowStore(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	publisher := events.NewRedisPublisher(rdb, log)
	registry := rbac.NewRegistry(roleRepo, log)

	verifier, err := escrow.NewVerifier(cfg.ProofScheme)
	if err != nil {
		log.Fatal("invalid proof scheme", zap.Error(err))
	}
	service := escrow.NewService(escrowStore, registry, verifier, publisher, auditRepo, escrow.Policy{
		AllowDirectClaim: cfg.AllowDirectClaim,
		AdminEarlyRefund: cfg.AdminEarlyRefund,
	}, log)

	operator := cfg.Operator()

	log.Info("worker started",
		zap.String("operator", operator.Hex()),
		zap.Duration("interval", cfg.SweepInterval),
	)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			n, err := service.SweepExpired(ctx, operator, cfg.SweepBatchSize)
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("swept expired escrows", zap.Int("refunded", n))
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
