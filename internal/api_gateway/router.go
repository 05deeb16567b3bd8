package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/handler"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	"github.com/stayhub-wallet-ledger/internal/config"
)

type handlers struct {
	wallet  *handler.WalletHandler
	topUp   *handler.TopUpHandler
	admin   *handler.AdminHandler
	webhook *handler.WebhookHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	cfg *config.Config,
	deps Dependencies,
	h handlers,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(deps.Metrics))

	v1 := r.Group("/api/v1")
	{
		// Provider callbacks authenticate with their own signatures
		v1.POST("/webhooks/:provider", h.webhook.Handle)

		authed := v1.Group("")
		authed.Use(middleware.Auth(deps.Tokens, logger))

		wallet := authed.Group("/wallet")
		{
			wallet.GET("/balance", h.wallet.GetBalance)
			wallet.GET("/transactions", h.wallet.ListTransactions)
			wallet.GET("/transactions/:id", h.wallet.GetTransaction)
			wallet.GET("/history", h.wallet.ListHistory)
			wallet.POST("/topups/orders", h.topUp.CreateOrder)
			wallet.POST("/topups/capture", h.topUp.CaptureOrder)
			wallet.POST("/withdrawals", h.wallet.RequestWithdrawal)
		}

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminOnly(deps.Roles, logger))
		{
			admin.GET("/users/:user_id/transactions", h.admin.ListUserTransactions)
			admin.GET("/withdrawals/pending", h.admin.ListPendingWithdrawals)
			admin.POST("/withdrawals/:id/approve", h.admin.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", h.admin.RejectWithdrawal)
			admin.GET("/captures/unreconciled", h.admin.ListUnreconciledCaptures)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}
}
