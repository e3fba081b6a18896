package services

import (
	"context"
	"errors"
	"testing"

	"github.com/creator-marketplace/backend/internal/config"
	"github.com/creator-marketplace/backend/internal/events"
	"github.com/creator-marketplace/backend/internal/models"
	"github.com/creator-marketplace/backend/internal/razorpay"
	"github.com/creator-marketplace/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// In-memory stand-ins for the stores. The engine only hands the transaction
// through to them, so the fake tx just counts commits and rollbacks.

type fakeTx struct {
	commits   int
	rollbacks int
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Commit(ctx context.Context) error                              { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error                            { t.rollbacks++; return nil }

type fakeBeginner struct{ tx *fakeTx }

func (b *fakeBeginner) Begin(ctx context.Context) (Tx, error) { return b.tx, nil }

type fakeOrderStore struct {
	orders     map[uuid.UUID]*models.Order
	statusSets []string
}

func (s *fakeOrderStore) GetForUpdate(ctx context.Context, db repositories.DB, id uuid.UUID) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, db repositories.DB, id uuid.UUID, status string) error {
	s.orders[id].Status = status
	s.statusSets = append(s.statusSets, status)
	return nil
}

func (s *fakeOrderStore) MarkInProgress(ctx context.Context, db repositories.DB, id uuid.UUID) error {
	s.orders[id].Status = models.OrderStatusInProgress
	s.statusSets = append(s.statusSets, models.OrderStatusInProgress)
	return nil
}

type fakeFinanceStore struct {
	paymentToOrder map[string]uuid.UUID

	locks, releases, fails, refunds int
	lockPaid, lockFee, lockPayout   float64
	lockErr                         error
}

func (s *fakeFinanceStore) GetOrderIDByPaymentID(ctx context.Context, razorpayPaymentID string) (uuid.UUID, error) {
	id, ok := s.paymentToOrder[razorpayPaymentID]
	if !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	return id, nil
}

func (s *fakeFinanceStore) Lock(ctx context.Context, db repositories.DB, orderID uuid.UUID, paid, fee, payout float64, razorpayPaymentID string) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locks++
	s.lockPaid, s.lockFee, s.lockPayout = paid, fee, payout
	return nil
}

func (s *fakeFinanceStore) Release(ctx context.Context, db repositories.DB, orderID uuid.UUID, transactionID string) error {
	s.releases++
	return nil
}

func (s *fakeFinanceStore) MarkPayoutFailed(ctx context.Context, db repositories.DB, orderID uuid.UUID) error {
	s.fails++
	return nil
}

func (s *fakeFinanceStore) MarkRefunded(ctx context.Context, db repositories.DB, orderID uuid.UUID) error {
	s.refunds++
	return nil
}

type fakePaymentStore struct {
	seen    map[string]bool
	records []models.PaymentRecord
}

func (s *fakePaymentStore) Insert(ctx context.Context, p *models.PaymentRecord) (bool, error) {
	if s.seen[p.RazorpayPaymentID] {
		return false, nil
	}
	s.seen[p.RazorpayPaymentID] = true
	s.records = append(s.records, *p)
	return true, nil
}

type fakeRoleStore struct{ grants []string }

func (s *fakeRoleStore) Upsert(ctx context.Context, userID uuid.UUID, role string) error {
	s.grants = append(s.grants, role)
	return nil
}

type fakeChatStore struct{ upserts int }

func (s *fakeChatStore) Upsert(ctx context.Context, db repositories.DB, orderID, buyerID, creatorID uuid.UUID) error {
	s.upserts++
	return nil
}

type fakeTimelineStore struct{ entries []string }

func (s *fakeTimelineStore) Insert(ctx context.Context, db repositories.DB, orderID uuid.UUID, eventType, title, description string) error {
	s.entries = append(s.entries, eventType)
	return nil
}

type memoryGuard struct{ applied map[string]bool }

func (g *memoryGuard) ShouldApply(ctx context.Context, kind, externalID string) bool {
	if externalID == "" {
		return true
	}
	return !g.applied[kind+":"+externalID]
}

func (g *memoryGuard) MarkApplied(ctx context.Context, kind, externalID string) {
	if externalID != "" {
		g.applied[kind+":"+externalID] = true
	}
}

type fakePublisher struct{ published []events.Event }

func (p *fakePublisher) Publish(ctx context.Context, channel string, ev events.Event) error {
	p.published = append(p.published, ev)
	return nil
}

type fixture struct {
	svc      *ReconcileService
	tx       *fakeTx
	orders   *fakeOrderStore
	finance  *fakeFinanceStore
	payments *fakePaymentStore
	roles    *fakeRoleStore
	chats    *fakeChatStore
	timeline *fakeTimelineStore
	guard    *memoryGuard
}

func newFixture(orders ...*models.Order) *fixture {
	f := &fixture{
		tx:       &fakeTx{},
		orders:   &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}},
		finance:  &fakeFinanceStore{paymentToOrder: map[string]uuid.UUID{}},
		payments: &fakePaymentStore{seen: map[string]bool{}},
		roles:    &fakeRoleStore{},
		chats:    &fakeChatStore{},
		timeline: &fakeTimelineStore{},
		guard:    &memoryGuard{applied: map[string]bool{}},
	}
	for _, o := range orders {
		f.orders.orders[o.ID] = o
	}
	f.svc = NewReconcileService(
		&fakeBeginner{tx: f.tx},
		f.orders, f.finance, f.payments, f.roles, f.chats, f.timeline,
		f.guard, &fakePublisher{},
		&config.Config{DefaultPlatformFeeINR: 49},
		zap.NewNop(),
	)
	return f
}

func captureEvent(paymentID string, amountPaise int64, notes razorpay.Notes) *razorpay.Event {
	return &razorpay.Event{
		Kind:    razorpay.EventPaymentCaptured,
		Payment: &razorpay.PaymentEntity{ID: paymentID, Amount: amountPaise, Notes: notes},
	}
}

func TestCaptureLocksEscrow(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	f := newFixture(&models.Order{
		ID:                orderID,
		BuyerID:           userID,
		ProviderID:        uuid.New(),
		TotalINR:          100,
		PlatformChargeINR: 10,
		Status:            models.OrderStatusPendingPayment,
	})

	ev := captureEvent("pay_A", 9900, razorpay.Notes{OrderID: orderID.String(), UserID: userID.String()})
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if f.finance.locks != 1 {
		t.Fatalf("locks = %d, want 1", f.finance.locks)
	}
	if f.finance.lockPaid != 100 || f.finance.lockFee != 10 || f.finance.lockPayout != 90 {
		t.Errorf("split = (%v, %v, %v), want (100, 10, 90)",
			f.finance.lockPaid, f.finance.lockFee, f.finance.lockPayout)
	}
	if got := f.orders.orders[orderID].Status; got != models.OrderStatusInProgress {
		t.Errorf("order status = %q, want %q", got, models.OrderStatusInProgress)
	}
	if f.chats.upserts != 1 {
		t.Errorf("chat upserts = %d, want 1", f.chats.upserts)
	}
	if len(f.timeline.entries) != 1 || f.timeline.entries[0] != models.TimelinePaymentReceived {
		t.Errorf("timeline entries = %v, want [%s]", f.timeline.entries, models.TimelinePaymentReceived)
	}
	if len(f.payments.records) != 1 {
		t.Fatalf("payment records = %d, want 1", len(f.payments.records))
	}
	if got := f.payments.records[0].AmountINR; got != 99 {
		t.Errorf("recorded amount = %v INR, want 99", got)
	}
	if f.tx.commits != 1 {
		t.Errorf("commits = %d, want 1", f.tx.commits)
	}
}

func TestCaptureDeliveredTwice(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	f := newFixture(&models.Order{
		ID:                orderID,
		BuyerID:           userID,
		ProviderID:        uuid.New(),
		TotalINR:          100,
		PlatformChargeINR: 10,
		Status:            models.OrderStatusPendingPayment,
	})

	ev := captureEvent("pay_A", 10000, razorpay.Notes{OrderID: orderID.String(), UserID: userID.String()})
	for i := 0; i < 2; i++ {
		if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if f.finance.locks != 1 {
		t.Errorf("locks = %d, want 1", f.finance.locks)
	}
	if len(f.payments.records) != 1 {
		t.Errorf("payment records = %d, want 1", len(f.payments.records))
	}
}

func TestCaptureRedeliveredAfterGuardLoss(t *testing.T) {
	// Redis state can be lost (restart, TTL); the order status guard and the
	// unique payment row must still absorb the redelivery.
	orderID := uuid.New()
	userID := uuid.New()
	f := newFixture(&models.Order{
		ID:                orderID,
		BuyerID:           userID,
		ProviderID:        uuid.New(),
		TotalINR:          100,
		PlatformChargeINR: 10,
		Status:            models.OrderStatusPendingPayment,
	})

	ev := captureEvent("pay_A", 10000, razorpay.Notes{OrderID: orderID.String(), UserID: userID.String()})
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	f.guard.applied = map[string]bool{}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if f.finance.locks != 1 {
		t.Errorf("locks = %d, want 1", f.finance.locks)
	}
	if len(f.payments.records) != 1 {
		t.Errorf("payment records = %d, want 1", len(f.payments.records))
	}
}

func TestCaptureGrantsRoleWithoutOrder(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	ev := captureEvent("pay_R", 4900, razorpay.Notes{RoleVerification: "creator", UserID: userID.String()})
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(f.roles.grants) != 1 || f.roles.grants[0] != "creator" {
		t.Errorf("grants = %v, want [creator]", f.roles.grants)
	}
	if f.finance.locks != 0 {
		t.Errorf("locks = %d, want 0", f.finance.locks)
	}
	if len(f.payments.records) != 0 {
		t.Errorf("payment records = %d, want 0", len(f.payments.records))
	}
}

func TestCaptureForUnknownOrder(t *testing.T) {
	// The payment row is still recorded for audit even when the order row is
	// missing; the escrow ledger stays untouched.
	f := newFixture()
	ev := captureEvent("pay_X", 10000, razorpay.Notes{
		OrderID: uuid.NewString(), UserID: uuid.NewString(),
	})

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if f.finance.locks != 0 {
		t.Errorf("locks = %d, want 0", f.finance.locks)
	}
	if len(f.payments.records) != 1 {
		t.Errorf("payment records = %d, want 1", len(f.payments.records))
	}
}

func TestCaptureStoreFailurePropagates(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(&models.Order{
		ID:       orderID,
		TotalINR: 100,
		Status:   models.OrderStatusPendingPayment,
	})
	f.finance.lockErr = errors.New("connection reset")

	ev := captureEvent("pay_A", 10000, razorpay.Notes{OrderID: orderID.String(), UserID: uuid.NewString()})
	if err := f.svc.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error from failed escrow lock")
	}
	if f.tx.commits != 0 {
		t.Errorf("commits = %d, want 0", f.tx.commits)
	}
	// Not marked applied, so the redelivery will be let through.
	if !f.guard.ShouldApply(context.Background(), razorpay.EventPaymentCaptured, "pay_A") {
		t.Error("failed event must stay eligible for redelivery")
	}
}

func TestPayoutCompletesOrder(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(&models.Order{ID: orderID, Status: models.OrderStatusInProgress})

	ev := &razorpay.Event{
		Kind:   razorpay.EventPayoutProcessed,
		Payout: &razorpay.PayoutEntity{ID: "pout_1", Notes: razorpay.Notes{OrderID: orderID.String()}},
	}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if f.finance.releases != 1 {
		t.Errorf("releases = %d, want 1", f.finance.releases)
	}
	if got := f.orders.orders[orderID].Status; got != models.OrderStatusCompleted {
		t.Errorf("order status = %q, want %q", got, models.OrderStatusCompleted)
	}
	if len(f.timeline.entries) != 1 || f.timeline.entries[0] != models.TimelinePayoutReleased {
		t.Errorf("timeline entries = %v, want [%s]", f.timeline.entries, models.TimelinePayoutReleased)
	}
}

func TestTerminalOrderNeverRegresses(t *testing.T) {
	// Late or duplicate events against a settled order are acknowledged no-ops.
	tests := []struct {
		name   string
		status string
		event  *razorpay.Event
	}{
		{
			"payout after cancel",
			models.OrderStatusCancelled,
			&razorpay.Event{Kind: razorpay.EventPayoutProcessed, Payout: &razorpay.PayoutEntity{ID: "pout_1"}},
		},
		{
			"failure after completion",
			models.OrderStatusCompleted,
			&razorpay.Event{Kind: razorpay.EventPaymentFailed, Payment: &razorpay.PaymentEntity{ID: "pay_A"}},
		},
		{
			"refund after payout",
			models.OrderStatusCompleted,
			&razorpay.Event{Kind: razorpay.EventRefundProcessed, Refund: &razorpay.RefundEntity{ID: "rfnd_1", PaymentID: "pay_A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderID := uuid.New()
			f := newFixture(&models.Order{ID: orderID, Status: tt.status})
			f.finance.paymentToOrder["pay_A"] = orderID
			if tt.event.Payment != nil {
				tt.event.Payment.Notes.OrderID = orderID.String()
			}
			if tt.event.Payout != nil {
				tt.event.Payout.Notes.OrderID = orderID.String()
			}

			if err := f.svc.HandleEvent(context.Background(), tt.event); err != nil {
				t.Fatalf("HandleEvent: %v", err)
			}
			if got := f.orders.orders[orderID].Status; got != tt.status {
				t.Errorf("order status = %q, want unchanged %q", got, tt.status)
			}
			if n := len(f.orders.statusSets); n != 0 {
				t.Errorf("status writes = %d, want 0", n)
			}
			if f.finance.releases+f.finance.fails+f.finance.refunds != 0 {
				t.Error("finance record must not be touched")
			}
			if f.tx.commits != 0 {
				t.Errorf("commits = %d, want 0", f.tx.commits)
			}
		})
	}
}

func TestRefundForUnknownPayment(t *testing.T) {
	// A refund we can't map to an order is acknowledged, not retried: there is
	// nothing to converge.
	f := newFixture()
	ev := &razorpay.Event{
		Kind:   razorpay.EventRefundProcessed,
		Refund: &razorpay.RefundEntity{ID: "rfnd_1", PaymentID: "pay_missing"},
	}

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if f.finance.refunds != 0 {
		t.Errorf("refunds = %d, want 0", f.finance.refunds)
	}
	if f.tx.commits != 0 {
		t.Errorf("commits = %d, want 0", f.tx.commits)
	}
}

func TestRefundCancelsOrder(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(&models.Order{ID: orderID, Status: models.OrderStatusInProgress})
	f.finance.paymentToOrder["pay_A"] = orderID

	ev := &razorpay.Event{
		Kind:   razorpay.EventRefundProcessed,
		Refund: &razorpay.RefundEntity{ID: "rfnd_1", PaymentID: "pay_A"},
	}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if f.finance.refunds != 1 {
		t.Errorf("refunds = %d, want 1", f.finance.refunds)
	}
	if got := f.orders.orders[orderID].Status; got != models.OrderStatusCancelled {
		t.Errorf("order status = %q, want %q", got, models.OrderStatusCancelled)
	}
}

func TestPaymentFailedMarksOrder(t *testing.T) {
	orderID := uuid.New()
	f := newFixture(&models.Order{ID: orderID, Status: models.OrderStatusPendingPayment})

	ev := &razorpay.Event{
		Kind:    razorpay.EventPaymentFailed,
		Payment: &razorpay.PaymentEntity{ID: "pay_A", Notes: razorpay.Notes{OrderID: orderID.String()}},
	}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if f.finance.fails != 1 {
		t.Errorf("payout-failed marks = %d, want 1", f.finance.fails)
	}
	if got := f.orders.orders[orderID].Status; got != models.OrderStatusFailed {
		t.Errorf("order status = %q, want %q", got, models.OrderStatusFailed)
	}
}

func TestUnrecognizedKindIgnored(t *testing.T) {
	f := newFixture()
	ev := &razorpay.Event{Kind: "invoice.paid"}

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if f.tx.commits != 0 || f.finance.locks != 0 || len(f.payments.records) != 0 {
		t.Error("unrecognized kind must not touch any store")
	}
}
