package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stayhub-wallet-ledger/internal/domain/user"
	"github.com/stayhub-wallet-ledger/internal/platform/auth"
)

// UserIDKey is the key used to store the authenticated user id in the context
const UserIDKey = "user_id"

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// Auth rejects requests without a valid bearer token with 401
func Auth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			token = ""
		}

		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Rejected request with invalid bearer token",
				"path", c.Request.URL.Path,
				"correlation_id", GetCorrelationID(c),
				"error", err,
			)
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token")
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// AdminOnly rejects authenticated callers that are not administrators with 403
func AdminOnly(roles user.RoleLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		role, err := roles.GetUserRole(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to resolve user role",
				"user_id", userID,
				"correlation_id", GetCorrelationID(c),
				"error", err,
			)
			abortWithError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Role lookup is temporarily unavailable")
			return
		}
		if !role.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Administrator role required")
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the authenticated user id, or "" before authentication
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
