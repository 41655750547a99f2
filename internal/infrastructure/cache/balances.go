package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
)

const (
	balanceKeyPrefix = "qwami:balance:"
	statsKey         = "qwami:stats"

	// Balance snapshots go stale fast; stats can lag a little longer.
	balanceTTL = 30 * time.Second
	statsTTL   = 5 * time.Minute
)

// BalanceCache stores reconciled balance snapshots and token stats so the
// read endpoints can serve without hitting the ledger on every request.
type BalanceCache struct {
	redis RedisClient
}

// NewBalanceCache creates a balance cache on top of the shared Redis client.
func NewBalanceCache(redis RedisClient) *BalanceCache {
	return &BalanceCache{redis: redis}
}

// GetSnapshot returns the cached snapshot for a wallet, or ErrCacheMiss.
func (c *BalanceCache) GetSnapshot(ctx context.Context, wallet string) (entities.BalanceSnapshot, error) {
	var snapshot entities.BalanceSnapshot
	if err := c.redis.Get(ctx, balanceKeyPrefix+wallet, &snapshot); err != nil {
		return entities.BalanceSnapshot{}, err
	}
	return snapshot, nil
}

// SetSnapshot stores a wallet's snapshot with the balance TTL.
func (c *BalanceCache) SetSnapshot(ctx context.Context, wallet string, snapshot entities.BalanceSnapshot) error {
	if err := c.redis.Set(ctx, balanceKeyPrefix+wallet, snapshot, balanceTTL); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// InvalidateSnapshot drops a wallet's cached snapshot, forcing the next read
// through to the ledger.
func (c *BalanceCache) InvalidateSnapshot(ctx context.Context, wallet string) error {
	return c.redis.Del(ctx, balanceKeyPrefix+wallet)
}

// GetStats returns the cached token stats, or ErrCacheMiss.
func (c *BalanceCache) GetStats(ctx context.Context) (entities.TokenStats, error) {
	var stats entities.TokenStats
	if err := c.redis.Get(ctx, statsKey, &stats); err != nil {
		return entities.TokenStats{}, err
	}
	return stats, nil
}

// SetStats stores the token stats with the stats TTL.
func (c *BalanceCache) SetStats(ctx context.Context, stats entities.TokenStats) error {
	if err := c.redis.Set(ctx, statsKey, stats, statsTTL); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}
