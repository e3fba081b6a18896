package repositories

import (
	"context"

	"github.com/creator-marketplace/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, buyer_id, provider_id, total_inr, platform_charge_inr, status,
       chat_unlocked_at, ready_for_delivery_at, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.ProviderID, &o.TotalINR, &o.PlatformChargeINR, &o.Status,
		&o.ChatUnlockedAt, &o.ReadyForDeliveryAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1
	`, id))
}

// GetForUpdate locks the order row for the duration of the transaction, so
// concurrent webhook deliveries for the same order serialize here.
func (r *OrderRepo) GetForUpdate(ctx context.Context, db DB, id uuid.UUID) (*models.Order, error) {
	return scanOrder(db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, db DB, id uuid.UUID, status string) error {
	_, err := db.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

// MarkInProgress advances a paid order and stamps the chat/delivery unlocks.
func (r *OrderRepo) MarkInProgress(ctx context.Context, db DB, id uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE orders
		SET status = $1, chat_unlocked_at = now(), ready_for_delivery_at = now(), updated_at = now()
		WHERE id = $2
	`, models.OrderStatusInProgress, id)
	return err
}
