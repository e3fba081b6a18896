package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/creator-marketplace/backend/internal/config"
	"github.com/creator-marketplace/backend/internal/events"
	"github.com/creator-marketplace/backend/internal/idempotency"
	"github.com/creator-marketplace/backend/internal/models"
	"github.com/creator-marketplace/backend/internal/razorpay"
	"github.com/creator-marketplace/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReconcileService maps verified Razorpay webhook events onto order and escrow
// state. Each order mutation (finance + order row + side records) commits as a
// single transaction; a returned error means a store failure and the caller
// should answer 5xx so Razorpay redelivers. Everything else — unknown kinds,
// missing notes, unknown orders, illegal transitions — is a logged no-op.
type ReconcileService struct {
	db           TxBeginner
	orderRepo    OrderStore
	financeRepo  FinanceStore
	paymentRepo  PaymentStore
	roleRepo     RoleStore
	chatRepo     ChatStore
	timelineRepo TimelineStore
	guard        idempotency.Guard
	publisher    events.Publisher
	cfg          *config.Config
	log          *zap.Logger
}

func NewReconcileService(
	db TxBeginner,
	orderRepo OrderStore,
	financeRepo FinanceStore,
	paymentRepo PaymentStore,
	roleRepo RoleStore,
	chatRepo ChatStore,
	timelineRepo TimelineStore,
	guard idempotency.Guard,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		db:           db,
		orderRepo:    orderRepo,
		financeRepo:  financeRepo,
		paymentRepo:  paymentRepo,
		roleRepo:     roleRepo,
		chatRepo:     chatRepo,
		timelineRepo: timelineRepo,
		guard:        guard,
		publisher:    publisher,
		cfg:          cfg,
		log:          log,
	}
}

func (s *ReconcileService) HandleEvent(ctx context.Context, ev *razorpay.Event) error {
	switch ev.Kind {
	case razorpay.EventPaymentCaptured:
		return s.applyPaymentCaptured(ctx, ev.Payment)
	case razorpay.EventPaymentFailed:
		return s.applyPaymentFailed(ctx, ev.Payment)
	case razorpay.EventPayoutProcessed:
		return s.applyPayoutProcessed(ctx, ev.Payout)
	case razorpay.EventRefundProcessed:
		return s.applyRefundProcessed(ctx, ev.Refund)
	default:
		s.log.Debug("unrecognized webhook event, ignoring", zap.String("event", ev.Kind))
		return nil
	}
}

func (s *ReconcileService) applyPaymentCaptured(ctx context.Context, pay *razorpay.PaymentEntity) error {
	if pay == nil {
		s.log.Warn("payment.captured without payment entity, ignoring")
		return nil
	}
	if !s.guard.ShouldApply(ctx, razorpay.EventPaymentCaptured, pay.ID) {
		s.log.Info("payment.captured already applied", zap.String("payment_id", pay.ID))
		return nil
	}

	userID, hasUser := parseID(pay.Notes.UserID)
	orderID, hasOrder := parseID(pay.Notes.OrderID)

	if pay.Notes.RoleVerification != "" && hasUser {
		if err := s.roleRepo.Upsert(ctx, userID, pay.Notes.RoleVerification); err != nil {
			return fmt.Errorf("grant role: %w", err)
		}
		s.log.Info("role granted",
			zap.String("user_id", userID.String()),
			zap.String("role", pay.Notes.RoleVerification),
		)
	}

	if hasOrder && pay.ID != "" {
		if err := s.lockEscrow(ctx, orderID, pay); err != nil {
			return err
		}
	}

	if hasOrder && hasUser {
		inserted, err := s.paymentRepo.Insert(ctx, &models.PaymentRecord{
			OrderID:           orderID,
			UserID:            userID,
			RazorpayPaymentID: pay.ID,
			AmountINR:         pay.AmountINR(),
			Status:            models.PaymentStatusCaptured,
		})
		if err != nil {
			return fmt.Errorf("insert payment record: %w", err)
		}
		if !inserted {
			s.log.Info("payment record already exists", zap.String("payment_id", pay.ID))
		}
	}

	s.guard.MarkApplied(ctx, razorpay.EventPaymentCaptured, pay.ID)

	_ = s.publisher.Publish(ctx, "events:order", events.Event{
		Type: events.EventPaymentReceived,
		Payload: map[string]any{
			"payment_id": pay.ID,
			"order_id":   pay.Notes.OrderID,
			"amount_inr": pay.AmountINR(),
		},
	})
	return nil
}

// lockEscrow computes the payout split and commits ledger + lifecycle + chat
// room + timeline as one transaction. Only an order still awaiting payment is
// eligible; anything else means the capture was already applied or outrun by a
// later event, and the ledger must not be touched again.
func (s *ReconcileService) lockEscrow(ctx context.Context, orderID uuid.UUID, pay *razorpay.PaymentEntity) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("payment.captured for unknown order", zap.String("order_id", orderID.String()))
			return nil
		}
		return fmt.Errorf("load order: %w", err)
	}

	if order.Status != models.OrderStatusPendingPayment {
		s.log.Info("order not awaiting payment, skipping escrow lock",
			zap.String("order_id", orderID.String()),
			zap.String("status", order.Status),
		)
		return nil
	}

	payout, fee := models.ComputeCreatorPayout(order.TotalINR, order.PlatformChargeINR, s.cfg.DefaultPlatformFeeINR)

	if err := s.financeRepo.Lock(ctx, tx, orderID, order.TotalINR, fee, payout, pay.ID); err != nil {
		return fmt.Errorf("lock escrow: %w", err)
	}
	if err := s.orderRepo.MarkInProgress(ctx, tx, orderID); err != nil {
		return fmt.Errorf("mark order in progress: %w", err)
	}
	if err := s.chatRepo.Upsert(ctx, tx, orderID, order.BuyerID, order.ProviderID); err != nil {
		return fmt.Errorf("create chat room: %w", err)
	}
	if err := s.timelineRepo.Insert(ctx, tx, orderID, models.TimelinePaymentReceived,
		"Payment received", "Escrow locked. Order in progress."); err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit escrow lock: %w", err)
	}

	s.publishStatusChange(ctx, orderID, models.OrderStatusPendingPayment, models.OrderStatusInProgress)
	s.log.Info("escrow locked",
		zap.String("order_id", orderID.String()),
		zap.Float64("buyer_paid", order.TotalINR),
		zap.Float64("platform_fee", fee),
		zap.Float64("creator_payout", payout),
	)
	return nil
}

func (s *ReconcileService) applyPaymentFailed(ctx context.Context, pay *razorpay.PaymentEntity) error {
	if pay == nil {
		s.log.Warn("payment.failed without payment entity, ignoring")
		return nil
	}
	orderID, ok := parseID(pay.Notes.OrderID)
	if !ok {
		s.log.Warn("payment.failed without order reference, ignoring", zap.String("payment_id", pay.ID))
		return nil
	}
	if !s.guard.ShouldApply(ctx, razorpay.EventPaymentFailed, pay.ID) {
		return nil
	}

	applied, err := s.transition(ctx, orderID, models.OrderStatusFailed,
		func(tx repositories.DB) error {
			return s.financeRepo.MarkPayoutFailed(ctx, tx, orderID)
		},
		models.TimelinePaymentFailed, "Payment failed", "The payment attempt did not complete.")
	if err != nil {
		return err
	}
	if applied {
		s.guard.MarkApplied(ctx, razorpay.EventPaymentFailed, pay.ID)
	}
	return nil
}

func (s *ReconcileService) applyPayoutProcessed(ctx context.Context, payout *razorpay.PayoutEntity) error {
	if payout == nil {
		s.log.Warn("payout.processed without payout entity, ignoring")
		return nil
	}
	orderID, ok := parseID(payout.Notes.OrderID)
	if !ok {
		s.log.Warn("payout.processed without order reference, ignoring", zap.String("payout_id", payout.ID))
		return nil
	}
	if !s.guard.ShouldApply(ctx, razorpay.EventPayoutProcessed, payout.ID) {
		return nil
	}

	applied, err := s.transition(ctx, orderID, models.OrderStatusCompleted,
		func(tx repositories.DB) error {
			return s.financeRepo.Release(ctx, tx, orderID, payout.ID)
		},
		models.TimelinePayoutReleased, "Payout released", "Creator payout has been released from escrow.")
	if err != nil {
		return err
	}
	if applied {
		s.guard.MarkApplied(ctx, razorpay.EventPayoutProcessed, payout.ID)
	}
	return nil
}

func (s *ReconcileService) applyRefundProcessed(ctx context.Context, refund *razorpay.RefundEntity) error {
	if refund == nil || refund.PaymentID == "" {
		s.log.Warn("refund.processed without payment reference, ignoring")
		return nil
	}
	if !s.guard.ShouldApply(ctx, razorpay.EventRefundProcessed, refund.PaymentID) {
		return nil
	}

	orderID, err := s.financeRepo.GetOrderIDByPaymentID(ctx, refund.PaymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("refund.processed for unknown payment", zap.String("payment_id", refund.PaymentID))
			return nil
		}
		return fmt.Errorf("resolve refund order: %w", err)
	}

	applied, err := s.transition(ctx, orderID, models.OrderStatusCancelled,
		func(tx repositories.DB) error {
			return s.financeRepo.MarkRefunded(ctx, tx, orderID)
		},
		models.TimelineRefundProcessed, "Refund processed", "The buyer payment was refunded.")
	if err != nil {
		return err
	}
	if applied {
		s.guard.MarkApplied(ctx, razorpay.EventRefundProcessed, refund.PaymentID)
	}
	return nil
}

// transition locks the order row, validates the status change against the
// state machine, and commits the order update, the finance mutation and a
// timeline entry atomically. Returns false without error when the transition
// is not applicable — a terminal order is never overwritten.
func (s *ReconcileService) transition(
	ctx context.Context,
	orderID uuid.UUID,
	newStatus string,
	mutateFinance func(tx repositories.DB) error,
	timelineType, timelineTitle, timelineDesc string,
) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("event for unknown order", zap.String("order_id", orderID.String()))
			return false, nil
		}
		return false, fmt.Errorf("load order: %w", err)
	}

	if !models.IsValidTransition(order.Status, newStatus) {
		s.log.Warn("transition not permitted, ignoring event",
			zap.String("order_id", orderID.String()),
			zap.String("from", order.Status),
			zap.String("to", newStatus),
		)
		return false, nil
	}

	if err := mutateFinance(tx); err != nil {
		return false, fmt.Errorf("update finance: %w", err)
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, newStatus); err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	if err := s.timelineRepo.Insert(ctx, tx, orderID, timelineType, timelineTitle, timelineDesc); err != nil {
		return false, fmt.Errorf("insert timeline entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transition: %w", err)
	}

	s.publishStatusChange(ctx, orderID, order.Status, newStatus)
	return true, nil
}

func (s *ReconcileService) publishStatusChange(ctx context.Context, orderID uuid.UUID, oldStatus, newStatus string) {
	_ = s.publisher.Publish(ctx, "events:order", events.Event{
		Type: events.EventOrderStatusChanged,
		Payload: map[string]any{
			"order_id":   orderID.String(),
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	})
}

func parseID(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
