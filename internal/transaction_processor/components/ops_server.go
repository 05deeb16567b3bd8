package components

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// NewOpsServer builds the processor's side HTTP server exposing liveness and
// Prometheus metrics. It returns nil when metrics are disabled.
func NewOpsServer(cfg *config.Config, m *metrics.Metrics) *http.Server {
	if !cfg.Metrics.Enabled || m == nil {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": cfg.Application.Name})
	})
	r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}
}
