package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "razorpay:event:"
	processedTTL = 7 * 24 * time.Hour
)

// Guard records which (event kind, external id) pairs have already been fully
// applied, so at-least-once delivery produces exactly-once effects.
type Guard interface {
	// ShouldApply reports whether the event has not yet been applied.
	// An empty externalID cannot be deduplicated and always returns true.
	ShouldApply(ctx context.Context, kind, externalID string) bool
	// MarkApplied records the event as fully applied.
	MarkApplied(ctx context.Context, kind, externalID string)
}

// RedisGuard is the fast path. It fails open on redis errors: the database
// unique constraints and guarded status updates remain the authoritative
// dedup layer, redis only short-circuits the common retry case.
type RedisGuard struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisGuard(client *redis.Client, log *zap.Logger) *RedisGuard {
	return &RedisGuard{client: client, log: log}
}

func Key(kind, externalID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, kind, externalID)
}

func (g *RedisGuard) ShouldApply(ctx context.Context, kind, externalID string) bool {
	if externalID == "" {
		return true
	}
	n, err := g.client.Exists(ctx, Key(kind, externalID)).Result()
	if err != nil {
		g.log.Warn("idempotency check failed, applying anyway",
			zap.String("kind", kind),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
		return true
	}
	return n == 0
}

func (g *RedisGuard) MarkApplied(ctx context.Context, kind, externalID string) {
	if externalID == "" {
		return
	}
	if err := g.client.Set(ctx, Key(kind, externalID), "applied", processedTTL).Err(); err != nil {
		g.log.Warn("failed to mark event applied",
			zap.String("kind", kind),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
}
