package repositories

import (
	"context"

	"github.com/creator-marketplace/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TimelineRepo struct {
	pool *pgxpool.Pool
}

func NewTimelineRepo(pool *pgxpool.Pool) *TimelineRepo {
	return &TimelineRepo{pool: pool}
}

func (r *TimelineRepo) Insert(ctx context.Context, db DB, orderID uuid.UUID, eventType, title, description string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO order_timeline (order_id, event_type, title, description)
		VALUES ($1, $2, $3, $4)
	`, orderID, eventType, title, description)
	return err
}

func (r *TimelineRepo) ListByOrder(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, event_type, title, description, created_at
		FROM order_timeline WHERE order_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType, &e.Title, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
