package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/payment"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order; reconciliation wraps a store error so it comes first
var errorMappings = []errorMapping{
	{ledger.ErrReconciliationRequired, http.StatusInternalServerError, "RECONCILIATION_REQUIRED", "Payment was captured but the wallet could not be credited yet; it will be reconciled"},
	{ledger.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN", "Not allowed to perform this operation"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be a positive number of minor units"},
	{ledger.ErrInvalidCurrency, http.StatusBadRequest, "INVALID_CURRENCY", "Currency is not supported for this wallet"},
	{ledger.ErrMissingExternalReference, http.StatusBadRequest, "MISSING_EXTERNAL_REFERENCE", "External payment reference is required"},
	{payment.ErrUnsupportedPaymentMethod, http.StatusBadRequest, "UNSUPPORTED_PAYMENT_METHOD", "Payment method is not supported"},
	{payment.ErrInvalidWebhookSignature, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed"},
	{ledger.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Wallet balance is insufficient"},
	{ledger.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{ledger.ErrAlreadyProcessed, http.StatusConflict, "ALREADY_PROCESSED", "Transaction has already been processed"},
	{ledger.ErrWrongType, http.StatusConflict, "WRONG_TYPE", "Operation not allowed for this transaction type"},
	{ledger.ErrGatewayFailure, http.StatusBadGateway, "GATEWAY_FAILURE", "Payment provider did not complete the request"},
	{ledger.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable, retry later"},
}

// respondServiceError translates service errors into HTTP responses.
// Unknown errors are logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	log := logger.With("operation", operation, "correlation_id", middleware.GetCorrelationID(c))

	var autoRejected ledger.ErrWithdrawalAutoRejected
	if errors.As(err, &autoRejected) {
		log.Info("Withdrawal auto-rejected at approval",
			"transaction_id", autoRejected.TransactionID.String(),
			"balance", autoRejected.Balance,
			"amount", autoRejected.Amount,
		)
		RespondWithError(c, http.StatusUnprocessableEntity, "WITHDRAWAL_AUTO_REJECTED", autoRejected.Error())
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				log.Error("Request failed", "error", err)
			} else {
				log.Warn("Request rejected", "error", err)
			}
			RespondWithError(c, m.status, m.code, m.message)
			return
		}
	}

	log.Error("Unexpected error", "error", err)
	RespondInternalError(c)
}
