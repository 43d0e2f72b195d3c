package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/eat-the-tokyo/3tree-escrow/internal/config"
	"github.com/eat-the-tokyo/3tree-escrow/internal/db"
	"github.com/eat-the-tokyo/3tree-escrow/internal/events"
)

// Notifier is a small service that subscribes to Redis events and forwards
// them to an external webhook (back-office alerts, SNS delivery service).

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is required")
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)

	log.Info("notifier started")

	_ = subscriber.Subscribe(ctx, events.StreamEscrow, func(event events.Event) {
		log.Info("forwarding escrow event", zap.String("type", event.Type))
		forward(cfg.WebhookURL, event, log)
	})

	_ = subscriber.Subscribe(ctx, events.StreamRoles, func(event events.Event) {
		log.Info("forwarding role event", zap.String("type", event.Type))
		forward(cfg.WebhookURL, event, log)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notifier")
	cancel()
}

func forward(url string, event events.Event, log *zap.Logger) {
	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	resp, err := http.Post(strings.TrimRight(url, "/"), "application/json", strings.NewReader(string(body)))
	if err != nil {
		log.Warn("failed to forward event", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("webhook returned non-200", zap.Int("status", resp.StatusCode), zap.String("type", event.Type))
	}
}
