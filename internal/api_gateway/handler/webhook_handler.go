package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/service"
)

const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

func NewWebhookHandler(logger *slog.Logger, notifications service.NotificationService) *WebhookHandler {
	return &WebhookHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// Handle verifies a provider callback against the raw body. Any non-2xx
// answer makes the provider redeliver.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		RespondBadRequest(c, "Unreadable webhook body")
		return
	}

	if err := h.notifications.HandleWebhook(c.Request.Context(), c.Param("provider"), payload, c.Request.Header); err != nil {
		respondServiceError(c, h.logger, "webhook", err)
		return
	}
	RespondOK(c, gin.H{"received": true})
}
