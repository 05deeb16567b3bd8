package user

import (
	"context"
	"errors"
)

// Role is the marketplace role of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleHost, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// RoleLookup resolves a user's role. Unknown users resolve to RoleUser.
type RoleLookup interface {
	GetUserRole(ctx context.Context, userID string) (Role, error)
}

// RoleCache is a best-effort cache in front of a RoleLookup. Misses return ("", nil).
type RoleCache interface {
	Get(ctx context.Context, userID string) (Role, error)
	Set(ctx context.Context, userID string, role Role) error
}
