package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

// Upsert grants a paid role. Re-granting the same (user, role) pair only
// refreshes the timestamps.
func (r *RoleRepo) Upsert(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO roles (user_id, role, paid_at, verified_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_id, role) DO UPDATE SET
			paid_at = EXCLUDED.paid_at,
			verified_at = EXCLUDED.verified_at
	`, userID, role)
	return err
}
