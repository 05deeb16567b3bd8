package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/metrics"
)

// Metrics records request counts and latency labeled by route template, so
// path parameters do not explode label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
