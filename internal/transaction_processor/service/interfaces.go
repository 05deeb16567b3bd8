package service

import (
	"context"

	"github.com/stayhub-wallet-ledger/internal/domain/shared"
)

// CaptureProcessor applies gateway capture notifications to the ledger.
// A returned error means the notification was not applied and must be
// delivered again; rejected notifications return nil.
type CaptureProcessor interface {
	ProcessCapture(ctx context.Context, notification *shared.CaptureNotification) error
}
