package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger/internal/models"
	"famledger/internal/testutil"
)

func TestAuditService_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	user := testutil.CreateTestUser(t, db)
	budgetID := models.NewID()
	svc.Log(user.ID, AuditUpdateBudget, "budget", budgetID, "10.0.0.1", map[string]interface{}{"amount": "500.00"})

	var entry models.AuditLog
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, AuditUpdateBudget, entry.Action)
	assert.Equal(t, budgetID, entry.ResourceID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)

	var changes map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.Changes), &changes))
	assert.Equal(t, "500.00", changes["amount"])
}

func TestAuditService_LogWithoutChanges(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	user := testutil.CreateTestUser(t, db)
	svc.Log(user.ID, AuditDeleteBudget, "budget", models.NewID(), "", nil)

	var entry models.AuditLog
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Empty(t, entry.Changes)
}
