package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

type RequestValidatorImpl struct {
	roles    user.RoleLookup
	currency string
	logger   *slog.Logger
}

func NewRequestValidator(roles user.RoleLookup, currency string, logger *slog.Logger) service.RequestValidator {
	return &RequestValidatorImpl{
		roles:    roles,
		currency: currency,
		logger:   logger,
	}
}

func (v *RequestValidatorImpl) checkOwnerAndAmount(callerID, userID string, amount int64) error {
	if callerID == "" || callerID != userID {
		return ledger.ErrUnauthorized
	}
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	return nil
}

// normalizeCurrency fills in the ledger currency and upper-cases the code
func (v *RequestValidatorImpl) normalizeCurrency(currency string) (string, error) {
	if currency == "" {
		return v.currency, nil
	}
	currency = strings.ToUpper(currency)
	if len(currency) != 3 {
		return "", ledger.ErrInvalidCurrency
	}
	return currency, nil
}

// ValidateTopUp checks ownership, amount and external reference, and
// normalizes the currency of req.
func (v *RequestValidatorImpl) ValidateTopUp(req *service.TopUpRequest) error {
	if err := v.checkOwnerAndAmount(req.CallerID, req.UserID, req.Amount); err != nil {
		return err
	}
	if req.ExternalTransactionID == "" {
		return ledger.ErrMissingExternalReference
	}

	currency, err := v.normalizeCurrency(req.Currency)
	if err != nil {
		return err
	}
	req.Currency = currency
	return nil
}

// ValidateWithdrawal checks ownership and amount, and normalizes the currency of req.
func (v *RequestValidatorImpl) ValidateWithdrawal(req *service.WithdrawalRequest) error {
	if err := v.checkOwnerAndAmount(req.CallerID, req.UserID, req.Amount); err != nil {
		return err
	}

	currency, err := v.normalizeCurrency(req.Currency)
	if err != nil {
		return err
	}
	req.Currency = currency
	return nil
}

func (v *RequestValidatorImpl) AuthorizeReader(ctx context.Context, callerID, ownerID string) error {
	if callerID == "" {
		return ledger.ErrUnauthorized
	}
	if callerID == ownerID {
		return nil
	}
	return v.RequireAdmin(ctx, callerID)
}

// RequireAdmin fails with ErrUnauthorized unless the user holds the admin role
func (v *RequestValidatorImpl) RequireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return ledger.ErrUnauthorized
	}

	role, err := v.roles.GetUserRole(ctx, userID)
	if err != nil {
		v.logger.Error("Failed to look up user role", "user_id", userID, "error", err)
		return ledger.NewStoreError("get user role", fmt.Errorf("role lookup for %s: %w", userID, err))
	}
	if !role.IsAdmin() {
		v.logger.Warn("Admin role required", "user_id", userID, "role", string(role))
		return ledger.ErrUnauthorized
	}
	return nil
}
