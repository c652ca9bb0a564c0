package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"famledger/internal/logger"
	"famledger/internal/services"
)

// OpsHandler serves operator endpoints mounted behind middleware.OpsAuthMiddleware.
// Operators act without a user account, so these calls are written to the
// application log instead of the audit table.
type OpsHandler struct {
	budgetService services.BudgetServicer
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(budgetService services.BudgetServicer) *OpsHandler {
	return &OpsHandler{budgetService: budgetService}
}

// RepairFamily recalculates every active budget of a family from the ledger.
// @Summary     Repair family budget usage
// @Tags        ops
// @Produce     json
// @Param       X-API-Key header string true "Operator API key"
// @Param       id        path   string true "Family ID"
// @Success     200 {object} services.RepairResult "Repair counts"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /ops/families/{id}/repair [post]
func (h *OpsHandler) RepairFamily(c *gin.Context) {
	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.RecalculateFamily(c.Request.Context(), familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Named("ops").Infow("family budgets repaired",
		"action", services.AuditRepairFamily,
		"family_id", familyID,
		"total", result.Total,
		"recalculated", result.Recalculated,
		"failed", result.Failed,
		"ip", c.ClientIP(),
	)

	c.JSON(http.StatusOK, gin.H{"result": result})
}
