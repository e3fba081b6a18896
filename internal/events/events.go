package events

import "context"

// Event types
const (
	EventOrderStatusChanged = "order_status_changed"
	EventPaymentReceived    = "payment_received"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}
