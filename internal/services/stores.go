package services

import (
	"context"

	"github.com/creator-marketplace/backend/internal/models"
	"github.com/creator-marketplace/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the slice of pgx.Tx the engine drives: the repository query surface
// plus commit and rollback.
type Tx interface {
	repositories.DB
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens the transaction each event commits under.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

type poolBeginner struct {
	pool *pgxpool.Pool
}

// NewPoolBeginner adapts a pgx pool to TxBeginner.
func NewPoolBeginner(pool *pgxpool.Pool) TxBeginner {
	return poolBeginner{pool: pool}
}

func (b poolBeginner) Begin(ctx context.Context) (Tx, error) {
	return b.pool.Begin(ctx)
}

// Store interfaces cover what the engine needs from the repositories.

type OrderStore interface {
	GetForUpdate(ctx context.Context, db repositories.DB, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, db repositories.DB, id uuid.UUID, status string) error
	MarkInProgress(ctx context.Context, db repositories.DB, id uuid.UUID) error
}

type FinanceStore interface {
	GetOrderIDByPaymentID(ctx context.Context, razorpayPaymentID string) (uuid.UUID, error)
	Lock(ctx context.Context, db repositories.DB, orderID uuid.UUID, paid, fee, payout float64, razorpayPaymentID string) error
	Release(ctx context.Context, db repositories.DB, orderID uuid.UUID, transactionID string) error
	MarkPayoutFailed(ctx context.Context, db repositories.DB, orderID uuid.UUID) error
	MarkRefunded(ctx context.Context, db repositories.DB, orderID uuid.UUID) error
}

type PaymentStore interface {
	Insert(ctx context.Context, p *models.PaymentRecord) (bool, error)
}

type RoleStore interface {
	Upsert(ctx context.Context, userID uuid.UUID, role string) error
}

type ChatStore interface {
	Upsert(ctx context.Context, db repositories.DB, orderID, buyerID, creatorID uuid.UUID) error
}

type TimelineStore interface {
	Insert(ctx context.Context, db repositories.DB, orderID uuid.UUID, eventType, title, description string) error
}
