package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOpsAuthMiddleware(t *testing.T) {
	cases := map[string]struct {
		configured string
		sent       string
		status     int
		code       string
	}{
		"matching key":   {configured: "ops-secret", sent: "ops-secret", status: http.StatusOK},
		"wrong key":      {configured: "ops-secret", sent: "wrong-key", status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"no header":      {configured: "ops-secret", status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"key prefix":     {configured: "ops-secret", sent: "ops-", status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"not configured": {sent: "anything", status: http.StatusServiceUnavailable, code: "OPS_NOT_CONFIGURED"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reached := false
			r := gin.New()
			r.POST("/ops", OpsAuthMiddleware(tc.configured), func(c *gin.Context) {
				reached = true
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/ops", http.NoBody)
			if tc.sent != "" {
				req.Header.Set(APIKeyHeader, tc.sent)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code == "", reached)
			if tc.code == "" {
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}
