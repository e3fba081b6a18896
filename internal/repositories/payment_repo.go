package repositories

import (
	"context"

	"github.com/creator-marketplace/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Insert appends an audit row for a captured payment. The unique constraint on
// razorpay_payment_id makes redelivery a no-op; the bool reports whether a row
// was actually written.
func (r *PaymentRepo) Insert(ctx context.Context, p *models.PaymentRecord) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO payments (order_id, user_id, razorpay_payment_id, amount_inr, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (razorpay_payment_id) DO NOTHING
	`, p.OrderID, p.UserID, p.RazorpayPaymentID, p.AmountINR, p.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, user_id, razorpay_payment_id, amount_inr, status, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.OrderID, &p.UserID, &p.RazorpayPaymentID, &p.AmountINR, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
