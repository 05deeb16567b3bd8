package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/handler"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/service"
	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/domain/user"
	ledgerservice "github.com/stayhub-wallet-ledger/internal/ledger_service/service"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// Dependencies are the services and collaborators the HTTP API is served from.
// Metrics may be nil.
type Dependencies struct {
	Ledger        ledgerservice.LedgerService
	Approvals     ledgerservice.ApprovalWorkflow
	Reconciler    ledgerservice.CaptureReconciler
	TopUps        service.TopUpService
	Notifications service.NotificationService
	Tokens        middleware.TokenVerifier
	Roles         user.RoleLookup
	Metrics       *metrics.Metrics
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger // For structured logging
	httpServer      *http.Server // Underlying HTTP server
	httpRouter      *gin.Engine  // Gin router instance
	shutdownTimeout time.Duration
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, cfg, deps, handlers{
		wallet:  handler.NewWalletHandler(log, deps.Ledger),
		topUp:   handler.NewTopUpHandler(log, deps.TopUps),
		admin:   handler.NewAdminHandler(log, deps.Ledger, deps.Approvals, deps.Reconciler),
		webhook: handler.NewWebhookHandler(log, deps.Notifications),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
