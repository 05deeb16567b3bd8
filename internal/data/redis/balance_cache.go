// Package redis implements the best-effort read caches kept in front of the
// authoritative PostgreSQL tables.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
)

const balanceKeyPrefix = "wallet:balance:"

// Commander is the subset of *redis.Client the caches rely on
type Commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// BalanceCache implements wallet.BalanceCache on Redis
type BalanceCache struct {
	client Commander
	ttl    time.Duration
	logger *slog.Logger
}

func NewBalanceCache(logger *slog.Logger, client Commander, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func balanceKey(userID string) string {
	return balanceKeyPrefix + userID
}

// Get returns the cached wallet, or nil on a miss
func (c *BalanceCache) Get(ctx context.Context, userID string) (*wallet.Wallet, error) {
	raw, err := c.client.Get(ctx, balanceKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached balance: %w", err)
	}

	var w wallet.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		c.logger.Warn("Dropping undecodable cached balance", "user_id", userID, "error", err)
		_ = c.client.Del(ctx, balanceKey(userID)).Err()
		return nil, nil
	}
	return &w, nil
}

func (c *BalanceCache) Set(ctx context.Context, w *wallet.Wallet) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode balance: %w", err)
	}
	if err := c.client.Set(ctx, balanceKey(w.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, balanceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balance: %w", err)
	}
	return nil
}
