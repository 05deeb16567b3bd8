package user

import (
	"context"
	"log/slog"
)

// CachedRoleLookup reads through a RoleCache. Cache failures are logged and
// the underlying lookup is used instead.
type CachedRoleLookup struct {
	next   RoleLookup
	cache  RoleCache
	logger *slog.Logger
}

func NewCachedRoleLookup(next RoleLookup, cache RoleCache, logger *slog.Logger) *CachedRoleLookup {
	return &CachedRoleLookup{next: next, cache: cache, logger: logger}
}

func (c *CachedRoleLookup) GetUserRole(ctx context.Context, userID string) (Role, error) {
	role, err := c.cache.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("Role cache read failed", "user_id", userID, "error", err)
	} else if role != "" {
		return role, nil
	}

	role, err = c.next.GetUserRole(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, userID, role); err != nil {
		c.logger.Warn("Role cache write failed", "user_id", userID, "error", err)
	}
	return role, nil
}
