package handler

import (
	"time"

	"github.com/stayhub-wallet-ledger/internal/domain/ledger"
	"github.com/stayhub-wallet-ledger/internal/domain/wallet"
)

// CreateOrderRequest opens a top-up order with a payment provider.
// Amounts are validated by the ledger so a zero amount maps to INVALID_AMOUNT.
type CreateOrderRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	Description   string `json:"description,omitempty"`
}

// CaptureOrderRequest captures an approved top-up order
type CaptureOrderRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	OrderID       string `json:"order_id" binding:"required"`
}

// CreateWithdrawalRequest asks to pay out part of the wallet balance
type CreateWithdrawalRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency,omitempty"`
	PaymentMethod  string            `json:"payment_method" binding:"required"`
	AccountDetails map[string]string `json:"account_details,omitempty"`
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type WalletResponse struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	Currency  string `json:"currency"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                    string            `json:"id"`
	UserID                string            `json:"user_id"`
	Type                  string            `json:"type"`
	Amount                int64             `json:"amount"`
	Currency              string            `json:"currency"`
	PaymentMethod         string            `json:"payment_method"`
	Status                string            `json:"status"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	AccountDetails        map[string]string `json:"account_details,omitempty"`
	RejectionReason       string            `json:"rejection_reason,omitempty"`
	ApprovedBy            string            `json:"approved_by,omitempty"`
	RejectedBy            string            `json:"rejected_by,omitempty"`
	BalanceAfter          *int64            `json:"balance_after,omitempty"`
	CreatedAt             string            `json:"created_at"`
	UpdatedAt             string            `json:"updated_at"`
	ApprovedAt            string            `json:"approved_at,omitempty"`
	RejectedAt            string            `json:"rejected_at,omitempty"`
}

type TopUpResponse struct {
	Transaction    TransactionResponse `json:"transaction"`
	NewBalance     int64               `json:"new_balance"`
	AlreadyApplied bool                `json:"already_applied"`
}

type ApprovalResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  int64               `json:"new_balance"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1,max=100000"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		UserID:    w.UserID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(txn *ledger.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:                    txn.ID.String(),
		UserID:                txn.UserID,
		Type:                  string(txn.Type),
		Amount:                txn.Amount,
		Currency:              txn.Currency,
		PaymentMethod:         txn.PaymentMethod,
		Status:                string(txn.Status),
		ExternalTransactionID: txn.ExternalTransactionID,
		AccountDetails:        txn.AccountDetails,
		RejectionReason:       txn.RejectionReason,
		ApprovedBy:            txn.ApprovedBy,
		RejectedBy:            txn.RejectedBy,
		BalanceAfter:          txn.BalanceAfter,
		CreatedAt:             txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             txn.UpdatedAt.Format(time.RFC3339),
	}

	if txn.ApprovedAt != nil {
		response.ApprovedAt = txn.ApprovedAt.Format(time.RFC3339)
	}
	if txn.RejectedAt != nil {
		response.RejectedAt = txn.RejectedAt.Format(time.RFC3339)
	}

	return response
}

func mapTransactionsToResponse(txns []*ledger.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	return responses
}
