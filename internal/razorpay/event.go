package razorpay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Webhook event kinds
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventPayoutProcessed = "payout.processed"
	EventRefundProcessed = "refund.processed"
)

// Notes carries the metadata we attach to Razorpay entities at checkout time.
type Notes struct {
	OrderID          string `json:"order_id"`
	RoleVerification string `json:"role_verification"`
	UserID           string `json:"user_id"`
}

// UnmarshalJSON tolerates Razorpay sending notes as an empty array instead of
// an object (it does this when no notes were set).
func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return nil
	}
	type alias Notes
	return json.Unmarshal(data, (*alias)(n))
}

// PaymentEntity is payload.payment.entity. Amount is in paise.
type PaymentEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Notes  Notes  `json:"notes"`
}

// AmountINR converts the minor-unit amount to rupees.
func (p *PaymentEntity) AmountINR() float64 {
	return float64(p.Amount) / 100
}

// PayoutEntity is payload.payout.entity.
type PayoutEntity struct {
	ID    string `json:"id"`
	Notes Notes  `json:"notes"`
}

// RefundEntity is payload.refund.entity.
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
}

// Event is a decoded webhook notification. Exactly one of Payment/Payout/Refund
// is set for a recognized kind; all are nil for unrecognized kinds, which are
// valid no-ops (Razorpay adds kinds we don't subscribe to).
type Event struct {
	Kind    string
	Payment *PaymentEntity
	Payout  *PayoutEntity
	Refund  *RefundEntity
}

// Recognized reports whether the event kind maps to a reconciliation transition.
func (e *Event) Recognized() bool {
	switch e.Kind {
	case EventPaymentCaptured, EventPaymentFailed, EventPayoutProcessed, EventRefundProcessed:
		return true
	}
	return false
}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *entityWrapper `json:"payment"`
		Payout  *entityWrapper `json:"payout"`
		Refund  *entityWrapper `json:"refund"`
	} `json:"payload"`
}

type entityWrapper struct {
	Entity json.RawMessage `json:"entity"`
}

// ParseEvent decodes a webhook body. A structurally invalid body is an error;
// a recognized kind with a missing or malformed sub-entity is not — the entity
// is left nil and the corresponding effects degrade to no-ops, so one bad
// notification can't block the rest of the stream.
func ParseEvent(rawBody []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("invalid webhook body: missing event field")
	}

	ev := &Event{Kind: env.Event}

	switch env.Event {
	case EventPaymentCaptured, EventPaymentFailed:
		if env.Payload.Payment != nil && len(env.Payload.Payment.Entity) > 0 {
			var p PaymentEntity
			if err := json.Unmarshal(env.Payload.Payment.Entity, &p); err == nil {
				ev.Payment = &p
			}
		}
	case EventPayoutProcessed:
		if env.Payload.Payout != nil && len(env.Payload.Payout.Entity) > 0 {
			var p PayoutEntity
			if err := json.Unmarshal(env.Payload.Payout.Entity, &p); err == nil {
				ev.Payout = &p
			}
		}
	case EventRefundProcessed:
		if env.Payload.Refund != nil && len(env.Payload.Refund.Entity) > 0 {
			var r RefundEntity
			if err := json.Unmarshal(env.Payload.Refund.Entity, &r); err == nil {
				ev.Refund = &r
			}
		}
	}

	return ev, nil
}

// ExternalID returns the processor-assigned identifier used for idempotency.
// For refunds that's the refunded payment id.
func (e *Event) ExternalID() string {
	switch {
	case e.Payment != nil:
		return e.Payment.ID
	case e.Payout != nil:
		return e.Payout.ID
	case e.Refund != nil:
		return e.Refund.PaymentID
	}
	return ""
}
