package models

import (
	"time"

	"github.com/google/uuid"
)

// Timeline event types
const (
	TimelinePaymentReceived = "payment_received"
	TimelinePaymentFailed   = "payment_failed"
	TimelinePayoutReleased  = "payout_released"
	TimelineRefundProcessed = "refund_processed"
)

// TimelineEntry is an append-only human-readable audit trail per order.
type TimelineEntry struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	EventType   string    `json:"event_type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
