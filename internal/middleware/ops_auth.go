package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
)

// APIKeyHeader carries the operator key.
const APIKeyHeader = "X-API-Key"

// OpsAuthMiddleware guards operator endpoints such as the bulk usage repair.
// An empty configured key turns the endpoints off.
func OpsAuthMiddleware(apiKey string) gin.HandlerFunc {
	want := []byte(apiKey)
	return func(c *gin.Context) {
		switch {
		case len(want) == 0:
			RenderError(c, apperrors.ErrOpsNotConfigured)
		case subtle.ConstantTimeCompare([]byte(c.GetHeader(APIKeyHeader)), want) != 1:
			RenderError(c, apperrors.ErrInvalidAPIKey)
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}
