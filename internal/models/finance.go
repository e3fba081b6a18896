package models

import (
	"time"

	"github.com/google/uuid"
)

// Payout statuses
const (
	PayoutStatusNone     = "none"
	PayoutStatusReleased = "released"
	PayoutStatusFailed   = "failed"
	PayoutStatusRefunded = "refunded"
)

// Finance statuses
const (
	FinanceStatusUnlocked       = "unlocked"
	FinanceStatusEscrowLocked   = "escrow_locked"
	FinanceStatusPayoutReleased = "payout_released"
)

// OrderFinance is the per-order escrow record, 1:1 with Order.
// While escrow_locked is true, creator_payout + platform_fee must equal
// buyer_paid_amount.
type OrderFinance struct {
	OrderID           uuid.UUID  `json:"order_id"`
	BuyerPaidAmount   float64    `json:"buyer_paid_amount"`
	PlatformFee       float64    `json:"platform_fee"`
	EscrowLocked      bool       `json:"escrow_locked"`
	CreatorPayout     float64    `json:"creator_payout"`
	PayoutStatus      string     `json:"payout_status"`
	FinanceStatus     string     `json:"finance_status"`
	RazorpayPaymentID *string    `json:"razorpay_payment_id,omitempty"`
	TransactionID     *string    `json:"transaction_id,omitempty"`
	ReleasedAt        *time.Time `json:"released_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ComputeCreatorPayout is the single place the escrow split is calculated.
// A zero (or negative) platform charge is treated as "not set" and falls back
// to defaultFee; an explicit charge of 0 does not waive the fee.
func ComputeCreatorPayout(totalINR, platformChargeINR, defaultFee float64) (payout, fee float64) {
	fee = platformChargeINR
	if fee <= 0 {
		fee = defaultFee
	}
	return totalINR - fee, fee
}
