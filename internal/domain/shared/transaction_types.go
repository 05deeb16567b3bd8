package shared

// TransactionType defines the kinds of wallet transactions
type TransactionType string

const (
	TransactionTypeTopUp      TransactionType = "topup"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeTopUp || t == TransactionTypeWithdrawal
}

// TransactionStatus defines wallet transaction states. A transaction moves at
// most once, from pending to either completed or rejected.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusRejected
}

// Rejection reasons recorded on withdrawals
const (
	RejectionReasonDefault             = "rejected by administrator"
	RejectionReasonInsufficientBalance = "insufficient balance at time of approval"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
