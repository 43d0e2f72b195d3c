package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	ActorAddress *common.Address `json:"actor_address,omitempty"`
	ActorType    string          `json:"actor_type"` // user / relayer / admin / system
	Action       string          `json:"action"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Meta         map[string]any  `json:"meta,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
