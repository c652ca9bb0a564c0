package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"famledger/internal/validator"
)

const (
	testUserID   = "01900000-0000-7000-8000-0000000000a1"
	testFamilyID = "01900000-0000-7000-8000-0000000000f1"
	testBudgetID = "01900000-0000-7000-8000-0000000000b1"
	testCatID    = "01900000-0000-7000-8000-0000000000c1"
	testEntryID  = "01900000-0000-7000-8000-0000000000e1"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

type auditCall struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
}

// mockAuditService records every Log call.
type mockAuditService struct {
	mu    sync.Mutex
	calls []auditCall
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, auditCall{UserID: userID, Action: action, Resource: resourceType, ResourceID: resourceID})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Action)
	}
	return out
}

// injectUserID stands in for AuthMiddleware.
func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), "body: %s", rec.Body.String())
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	require.True(t, ok, "expected error object in response, got: %v", result)
	require.Equal(t, code, errObj["code"])
}
