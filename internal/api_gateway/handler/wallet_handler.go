package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

// WalletHandler serves the caller's own wallet
type WalletHandler struct {
	ledger ledgerservice.LedgerService
	logger *slog.Logger
}

func NewWalletHandler(logger *slog.Logger, ledgerSvc ledgerservice.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledger: ledgerSvc,
		logger: logger,
	}
}

// GetBalance returns the caller's wallet, creating an empty one on first use
func (h *WalletHandler) GetBalance(c *gin.Context) {
	w, err := h.ledger.GetBalance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, h.logger, "get_balance", err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

// ListTransactions returns the caller's transactions, newest first
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	userID := middleware.GetUserID(c)
	txns, total, err := h.ledger.ListTransactions(c.Request.Context(), userID, userID, pagination.Page, pagination.PerPage)
	if err != nil {
		respondServiceError(c, h.logger, "list_transactions", err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapTransactionsToResponse(txns), pagination.Page, pagination.PerPage, total)
}

// ListHistory returns the caller's projected history, which may trail the
// authoritative transaction list by a polling interval.
func (h *WalletHandler) ListHistory(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	userID := middleware.GetUserID(c)
	entries, total, err := h.ledger.ListHistory(c.Request.Context(), userID, userID, pagination.Page, pagination.PerPage)
	if err != nil {
		respondServiceError(c, h.logger, "list_history", err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, total)
}

func (h *WalletHandler) GetTransaction(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.ledger.GetTransaction(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondServiceError(c, h.logger, "get_transaction", err)
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// RequestWithdrawal records a pending withdrawal; the balance is untouched
// until an administrator approves it.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	txn, err := h.ledger.RequestWithdrawal(c.Request.Context(), &ledgerservice.WithdrawalRequest{
		CallerID:       userID,
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethod,
		AccountDetails: req.AccountDetails,
		CorrelationID:  middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondServiceError(c, h.logger, "request_withdrawal", err)
		return
	}
	RespondCreated(c, mapTransactionToResponse(txn))
}
