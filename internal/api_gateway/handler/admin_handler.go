package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
)

// AdminHandler serves the withdrawal approval queue and user lookups
type AdminHandler struct {
	ledger     ledgerservice.LedgerService
	approvals  ledgerservice.ApprovalWorkflow
	reconciler ledgerservice.CaptureReconciler
	logger     *slog.Logger
}

func NewAdminHandler(
	logger *slog.Logger,
	ledgerSvc ledgerservice.LedgerService,
	approvals ledgerservice.ApprovalWorkflow,
	reconciler ledgerservice.CaptureReconciler,
) *AdminHandler {
	return &AdminHandler{
		ledger:     ledgerSvc,
		approvals:  approvals,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (h *AdminHandler) ListUserTransactions(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	txns, total, err := h.ledger.ListTransactions(
		c.Request.Context(),
		middleware.GetUserID(c),
		c.Param("user_id"),
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		respondServiceError(c, h.logger, "list_user_transactions", err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapTransactionsToResponse(txns), pagination.Page, pagination.PerPage, total)
}

// ListPendingWithdrawals returns the approval queue, oldest request first
func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	txns, total, err := h.approvals.ListPendingWithdrawals(c.Request.Context(), middleware.GetUserID(c), pagination.Page, pagination.PerPage)
	if err != nil {
		respondServiceError(c, h.logger, "list_pending_withdrawals", err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapTransactionsToResponse(txns), pagination.Page, pagination.PerPage, total)
}

func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	result, err := h.approvals.ApproveWithdrawal(c.Request.Context(), id, middleware.GetUserID(c), middleware.GetCorrelationID(c))
	if err != nil {
		respondServiceError(c, h.logger, "approve_withdrawal", err)
		return
	}

	RespondOK(c, ApprovalResponse{
		Transaction: mapTransactionToResponse(result.Transaction),
		NewBalance:  result.NewBalance,
	})
}

// RejectWithdrawal accepts an optional JSON body carrying the reason
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req RejectWithdrawalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	txn, err := h.approvals.RejectWithdrawal(c.Request.Context(), id, middleware.GetUserID(c), req.Reason, middleware.GetCorrelationID(c))
	if err != nil {
		respondServiceError(c, h.logger, "reject_withdrawal", err)
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// ListUnreconciledCaptures lists captured payments still awaiting a credit
func (h *AdminHandler) ListUnreconciledCaptures(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(ledgerservice.DefaultPerPage)))
	if err != nil || limit < 1 {
		RespondBadRequest(c, "Invalid limit")
		return
	}

	captures, err := h.reconciler.ListOpen(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		respondServiceError(c, h.logger, "list_unreconciled_captures", err)
		return
	}
	RespondOK(c, captures)
}
