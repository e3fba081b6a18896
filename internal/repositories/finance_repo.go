package repositories

import (
	"context"

	"github.com/creator-marketplace/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FinanceRepo struct {
	pool *pgxpool.Pool
}

func NewFinanceRepo(pool *pgxpool.Pool) *FinanceRepo {
	return &FinanceRepo{pool: pool}
}

func (r *FinanceRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderFinance, error) {
	var f models.OrderFinance
	err := r.pool.QueryRow(ctx, `
		SELECT order_id, buyer_paid_amount, platform_fee, escrow_locked, creator_payout,
		       payout_status, finance_status, razorpay_payment_id, transaction_id,
		       released_at, created_at, updated_at
		FROM order_finance WHERE order_id = $1
	`, orderID).Scan(&f.OrderID, &f.BuyerPaidAmount, &f.PlatformFee, &f.EscrowLocked, &f.CreatorPayout,
		&f.PayoutStatus, &f.FinanceStatus, &f.RazorpayPaymentID, &f.TransactionID,
		&f.ReleasedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetOrderIDByPaymentID resolves the order a refund notification refers to.
func (r *FinanceRepo) GetOrderIDByPaymentID(ctx context.Context, razorpayPaymentID string) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT order_id FROM order_finance WHERE razorpay_payment_id = $1
	`, razorpayPaymentID).Scan(&orderID)
	return orderID, err
}

// Lock commits the escrow split for a captured payment.
func (r *FinanceRepo) Lock(ctx context.Context, db DB, orderID uuid.UUID, paid, fee, payout float64, razorpayPaymentID string) error {
	_, err := db.Exec(ctx, `
		UPDATE order_finance
		SET buyer_paid_amount = $1, platform_fee = $2, creator_payout = $3,
		    escrow_locked = true, razorpay_payment_id = $4,
		    finance_status = $5, updated_at = now()
		WHERE order_id = $6
	`, paid, fee, payout, razorpayPaymentID, models.FinanceStatusEscrowLocked, orderID)
	return err
}

// Release marks the creator payout as sent and records the payout reference.
func (r *FinanceRepo) Release(ctx context.Context, db DB, orderID uuid.UUID, transactionID string) error {
	_, err := db.Exec(ctx, `
		UPDATE order_finance
		SET payout_status = $1, finance_status = $2, transaction_id = $3,
		    released_at = now(), updated_at = now()
		WHERE order_id = $4
	`, models.PayoutStatusReleased, models.FinanceStatusPayoutReleased, transactionID, orderID)
	return err
}

func (r *FinanceRepo) MarkPayoutFailed(ctx context.Context, db DB, orderID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE order_finance SET payout_status = $1, updated_at = now() WHERE order_id = $2
	`, models.PayoutStatusFailed, orderID)
	return err
}

func (r *FinanceRepo) MarkRefunded(ctx context.Context, db DB, orderID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE order_finance SET payout_status = $1, updated_at = now() WHERE order_id = $2
	`, models.PayoutStatusRefunded, orderID)
	return err
}
