package models

import (
	"time"

	"github.com/google/uuid"
)

const PaymentStatusCaptured = "captured"

// PaymentRecord is an append-only audit row, one per captured payment.
// Deduplicated by razorpay_payment_id; never mutated after insert.
type PaymentRecord struct {
	ID                uuid.UUID `json:"id"`
	OrderID           uuid.UUID `json:"order_id"`
	UserID            uuid.UUID `json:"user_id"`
	RazorpayPaymentID string    `json:"razorpay_payment_id"`
	AmountINR         float64   `json:"amount_inr"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
