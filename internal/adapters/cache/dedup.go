package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDedupGuard is a fast-path duplicate check for fraud signals. A key is
// claimed with SETNX per (auction, user) pair and expires with the dedup
// window. The database check remains authoritative; this only saves the
// round trip for the common repeat case.
type RedisDedupGuard struct {
	client *redis.Client
}

// NewRedisDedupGuard creates a new Redis-backed dedup guard
func NewRedisDedupGuard(client *redis.Client) *RedisDedupGuard {
	return &RedisDedupGuard{client: client}
}

// FirstSeen claims the pair for the window. It returns false when another
// signal already claimed it within the window.
func (g *RedisDedupGuard) FirstSeen(ctx context.Context, auctionID uuid.UUID, userID int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("fraud:dedup:%s:%d", auctionID, userID)
	ok, err := g.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup key: %w", err)
	}
	return ok, nil
}
