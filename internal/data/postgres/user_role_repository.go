package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/platform/persistence"
)

// UserRoleRepository resolves marketplace roles from the user_roles table
type UserRoleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewUserRoleRepository(logger *slog.Logger, db *persistence.PostgresDB) *UserRoleRepository {
	return &UserRoleRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// GetUserRole returns the stored role, or user.RoleUser when none is recorded
func (r *UserRoleRepository) GetUserRole(ctx context.Context, userID string) (user.Role, error) {
	var stored string
	err := r.querier.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.RoleUser, nil
		}
		r.logger.Error("Failed to get user role", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	role, err := user.ParseRole(stored)
	if err != nil {
		r.logger.Warn("Unknown role stored for user, treating as user", "user_id", userID, "role", stored)
		return user.RoleUser, nil
	}
	return role, nil
}

// SetUserRole records a role assignment
func (r *UserRoleRepository) SetUserRole(ctx context.Context, userID string, role user.Role) error {
	query := `
		INSERT INTO user_roles (user_id, role, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
	`
	if _, err := r.querier.Exec(ctx, query, userID, string(role)); err != nil {
		r.logger.Error("Failed to set user role", "user_id", userID, "error", err)
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}
