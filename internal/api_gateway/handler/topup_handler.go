package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/service"
)

// TopUpHandler drives the two-step provider checkout that funds a wallet
type TopUpHandler struct {
	topUps service.TopUpService
	logger *slog.Logger
}

func NewTopUpHandler(logger *slog.Logger, topUps service.TopUpService) *TopUpHandler {
	return &TopUpHandler{
		topUps: topUps,
		logger: logger,
	}
}

func (h *TopUpHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.topUps.CreateOrder(c.Request.Context(), &service.CreateOrderRequest{
		UserID:        middleware.GetUserID(c),
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
	})
	if err != nil {
		respondServiceError(c, h.logger, "create_order", err)
		return
	}
	RespondCreated(c, order)
}

// CaptureOrder answers 200 for a first credit and for a replay of one
func (h *TopUpHandler) CaptureOrder(c *gin.Context) {
	var req CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.topUps.CaptureOrder(c.Request.Context(), &service.CaptureOrderRequest{
		UserID:        middleware.GetUserID(c),
		PaymentMethod: req.PaymentMethod,
		OrderID:       req.OrderID,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondServiceError(c, h.logger, "capture_order", err)
		return
	}

	RespondOK(c, TopUpResponse{
		Transaction:    mapTransactionToResponse(result.Transaction),
		NewBalance:     result.NewBalance,
		AlreadyApplied: result.AlreadyApplied,
	})
}
