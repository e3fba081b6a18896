package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleGrant is the side effect of a role-verification purchase.
// Upserted on (user_id, role).
type RoleGrant struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	PaidAt     time.Time `json:"paid_at"`
	VerifiedAt time.Time `json:"verified_at"`
}
