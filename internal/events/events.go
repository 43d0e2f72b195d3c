package events

import "context"

// Streams
const (
	StreamEscrow = "events:escrow"
	StreamRoles  = "events:roles"
)

// Event types
const (
	EventEscrowCreated  = "escrow_created"
	EventEscrowClaimed  = "escrow_claimed"
	EventEscrowRefunded = "escrow_refunded"
	EventRoleGranted    = "role_granted"
	EventRoleRevoked    = "role_revoked"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event. Used where no broker is wired (tests,
// one-shot tools).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
