package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusInProgress     = "in_progress"
	OrderStatusCompleted      = "completed"
	OrderStatusFailed         = "failed"
	OrderStatusCancelled      = "cancelled"
)

// Valid state transitions: from -> []to.
// Payout confirmations may outrun the capture notification, so completed is
// reachable directly from pending_payment. Terminal statuses have no exits.
var ValidOrderTransitions = map[string][]string{
	OrderStatusPendingPayment: {OrderStatusInProgress, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusInProgress:     {OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusCompleted:      {},
	OrderStatusFailed:         {},
	OrderStatusCancelled:      {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidOrderTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	allowed, ok := ValidOrderTransitions[status]
	return ok && len(allowed) == 0
}

type Order struct {
	ID                 uuid.UUID  `json:"id"`
	BuyerID            uuid.UUID  `json:"buyer_id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	TotalINR           float64    `json:"total_inr"`
	PlatformChargeINR  float64    `json:"platform_charge_inr"`
	Status             string     `json:"status"`
	ChatUnlockedAt     *time.Time `json:"chat_unlocked_at,omitempty"`
	ReadyForDeliveryAt *time.Time `json:"ready_for_delivery_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
