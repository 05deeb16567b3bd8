package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// Message stores a wallet event for reliable publishing. It is written in the
// same database transaction as the balance or status change it describes.
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	UserID        string              `json:"user_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(evt *shared.WalletEvent) (*Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: evt.TransactionID,
		UserID:        evt.UserID,
		EventType:     evt.EventType,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

// ApplyFailure mirrors a recorded relay failure onto the in-memory message.
func (m *Message) ApplyFailure(attempts int, status shared.OutboxStatus, at time.Time) {
	m.Attempts = attempts
	m.Status = status
	m.LastAttemptAt = &at
}

// Exhausted reports whether the message has stopped being retried.
func (m *Message) Exhausted() bool {
	return m.Status == shared.OutboxStatusFailedToPublish
}

// GetEvent extracts the wallet event from the payload
func (m *Message) GetEvent() (*shared.WalletEvent, error) {
	var evt shared.WalletEvent
	if err := json.Unmarshal(m.Payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
