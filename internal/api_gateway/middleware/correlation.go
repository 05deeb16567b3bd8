package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/correlation"
)

const (
	// CorrelationIDHeader is the HTTP header for correlation ID
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader is accepted from proxies that do not set CorrelationIDHeader
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDKey is the key used to store correlation ID in the context
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// acceptableID reports whether a client-supplied id is safe to echo into logs,
// Kafka headers and outbox rows.
func acceptableID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// CorrelationID tags every request with an id, reusing the caller's when it is
// acceptable. The id is also put on the request context so it reaches the
// services, the outbox and the Kafka headers they write.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		for _, header := range []string{CorrelationIDHeader, RequestIDHeader} {
			if id := c.GetHeader(header); acceptableID(id) {
				ctx = correlation.WithID(ctx, id)
				break
			}
		}
		ctx, correlationID := correlation.Ensure(ctx)

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id, or "" outside CorrelationID
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
