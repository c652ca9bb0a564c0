package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"famledger/internal/logger"
	"famledger/internal/models"
)

// Audit actions recorded by the API.
const (
	AuditCreateBudget      = "CREATE_BUDGET"
	AuditUpdateBudget      = "UPDATE_BUDGET"
	AuditDeleteBudget      = "DELETE_BUDGET"
	AuditRecalculateBudget = "RECALCULATE_BUDGET"
	AuditRepairFamily      = "REPAIR_FAMILY_BUDGETS"
	AuditCreateEntry       = "CREATE_ENTRY"
	AuditUpdateEntry       = "UPDATE_ENTRY"
	AuditDeleteEntry       = "DELETE_ENTRY"
	AuditAddMember         = "ADD_FAMILY_MEMBER"
	AuditLeaveFamily       = "LEAVE_FAMILY"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService returns an AuditServicer that writes to the audit_logs table.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so an audit
// outage never fails the request that triggered it.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	log := logger.Named("audit").With("action", action, "resource_type", resourceType, "resource_id", resourceID)

	row := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Warnw("audit changes not encodable", "error", err)
			data = []byte("{}")
		}
		row.Changes = string(data)
	}

	if err := s.db.Create(row).Error; err != nil {
		log.Errorw("audit write failed", "error", err, "user_id", userID)
	}
}
