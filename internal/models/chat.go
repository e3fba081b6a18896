package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom is seeded once escrow locks; unique per order.
type ChatRoom struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	CreatorID uuid.UUID `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}
