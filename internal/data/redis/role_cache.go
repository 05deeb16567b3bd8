package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayhub-wallet-ledger/internal/domain/user"
)

const roleKeyPrefix = "user:role:"

// RoleCache implements user.RoleCache on Redis
type RoleCache struct {
	client Commander
	ttl    time.Duration
}

func NewRoleCache(client Commander, ttl time.Duration) *RoleCache {
	return &RoleCache{client: client, ttl: ttl}
}

// Get returns the cached role, or "" on a miss or an unknown value
func (c *RoleCache) Get(ctx context.Context, userID string) (user.Role, error) {
	raw, err := c.client.Get(ctx, roleKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read cached role: %w", err)
	}

	role, err := user.ParseRole(raw)
	if err != nil {
		return "", nil
	}
	return role, nil
}

func (c *RoleCache) Set(ctx context.Context, userID string, role user.Role) error {
	if err := c.client.Set(ctx, roleKeyPrefix+userID, string(role), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache role: %w", err)
	}
	return nil
}
