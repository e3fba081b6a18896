package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// Upsert seeds the order's chat room. Unique on order_id, so a redelivered
// capture event can't create a second room.
func (r *ChatRepo) Upsert(ctx context.Context, db DB, orderID, buyerID, creatorID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		INSERT INTO chat_rooms (order_id, buyer_id, creator_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, buyerID, creatorID)
	return err
}
