package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
	"famledger/internal/services"
)

// BudgetHandler handles budgets, their usage and the budget summary.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	alertService  services.AlertServicer
	familyService services.FamilyServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(
	budgetService services.BudgetServicer,
	alertService services.AlertServicer,
	familyService services.FamilyServicer,
	auditService services.AuditServicer,
) *BudgetHandler {
	return &BudgetHandler{
		budgetService: budgetService,
		alertService:  alertService,
		familyService: familyService,
		auditService:  auditService,
	}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// Month is ignored for yearly budgets.
type CreateBudgetRequest struct {
	FamilyID       string              `json:"family_id" binding:"required,uuid"`
	CategoryID     string              `json:"category_id" binding:"required,uuid"`
	Amount         decimal.Decimal     `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"1000.00"`
	Period         models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	Year           int                 `json:"year" binding:"required,min=1,max=9999"`
	Month          int                 `json:"month" binding:"omitempty,min=1,max=12"`
	AlertThreshold *decimal.Decimal    `json:"alert_threshold" swaggertype:"string" example:"80"`
	Description    string              `json:"description" binding:"max=200"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	CategoryID     *string              `json:"category_id" binding:"omitempty,uuid"`
	Amount         *decimal.Decimal     `json:"amount" swaggertype:"string"`
	Period         *models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	Year           *int                 `json:"year" binding:"omitempty,min=1,max=9999"`
	Month          *int                 `json:"month" binding:"omitempty,min=1,max=12"`
	AlertThreshold *decimal.Decimal     `json:"alert_threshold" swaggertype:"string"`
	Description    *string              `json:"description" binding:"omitempty,max=200"`
	IsActive       *bool                `json:"is_active"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a spending ceiling for one category and period; usage is computed immediately
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(userID, services.CreateBudgetInput{
		FamilyID:       req.FamilyID,
		CategoryID:     req.CategoryID,
		Amount:         req.Amount,
		Period:         req.Period,
		Year:           req.Year,
		Month:          req.Month,
		AlertThreshold: req.AlertThreshold,
		Description:    req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateBudget, "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"amount": budget.Amount.StringFixed(2), "period": budget.Period, "year": budget.Year})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets lists budgets visible to the user.
// @Summary     Get budgets
// @Description Paginated budgets of one family, or of every family the user belongs to
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       family_id query string false "Filter by family"
// @Param       year      query int    false "Filter by year"
// @Param       month     query int    false "Filter by stored month"
// @Param       period    query string false "monthly, quarterly or yearly"
// @Param       is_active query bool   false "Filter by active status"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseBudgetFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.GetBudgets(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseBudgetFilter(c *gin.Context) (services.BudgetFilter, error) {
	var filter services.BudgetFilter

	familyID, err := queryUUID(c, "family_id")
	if err != nil {
		return filter, err
	}
	filter.FamilyID = familyID

	if v, ok, err := queryInt(c, "year"); err != nil {
		return filter, err
	} else if ok {
		filter.Year = &v
	}
	if v, ok, err := queryInt(c, "month"); err != nil {
		return filter, err
	} else if ok {
		if v < 1 || v > 12 {
			return filter, apperrors.ErrInvalidMonth
		}
		filter.Month = &v
	}

	if v := c.Query("period"); v != "" {
		p, err := period.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.Period = &p
	}

	filter.IsActive, err = queryBool(c, "is_active")
	return filter, err
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *gin.Context, name string) (*string, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+name)
	}
	s := id.String()
	return &s, nil
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating an existing budget.
// @Summary     Update budget
// @Description Moving a budget to another category or window recalculates its usage
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to change"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input or budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(userID, budgetID, services.UpdateBudgetInput{
		CategoryID:     req.CategoryID,
		Amount:         req.Amount,
		Period:         req.Period,
		Year:           req.Year,
		Month:          req.Month,
		AlertThreshold: req.AlertThreshold,
		Description:    req.Description,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateBudget, "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"amount": budget.Amount.StringFixed(2), "used_amount": budget.UsedAmount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete budget
// @Description Deactivate and soft delete a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteBudget, "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget deleted successfully"})
}

// RecalculateBudget re-derives one budget's usage from the ledger.
// @Summary     Recalculate budget usage
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Recalculated budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/recalculate [post]
func (h *BudgetHandler) RecalculateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Membership check.
	if _, err := h.budgetService.GetBudgetByID(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.Recalculate(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditRecalculateBudget, "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"used_amount": budget.UsedAmount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// RecalculateFamily repairs the usage of every active budget of a family.
// @Summary     Recalculate family budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Family ID"
// @Success     200 {object} services.RepairResult "Repair counts"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /families/{id}/budgets/recalculate [post]
func (h *BudgetHandler) RecalculateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.familyService.RequireMember(userID, familyID); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.RecalculateFamily(c.Request.Context(), familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditRepairFamily, "family", familyID, c.ClientIP(),
		map[string]interface{}{"total": result.Total, "failed": result.Failed})

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// GetSummary reports budget usage for one period and raises new alerts.
// @Summary     Budget summary
// @Description Totals, per-category usage and alerts for a period; new alerts become notifications
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       family_id query string false "Limit to one family"
// @Param       period    query string false "monthly (default), quarterly or yearly"
// @Param       year      query int    false "Year (default current)"
// @Param       month     query int    false "Month (default current)"
// @Success     200 {object} services.BudgetSummary "Budget summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /budgets/summary [get]
func (h *BudgetHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	q := services.SummaryQuery{Period: models.BudgetPeriodMonthly}
	if q.FamilyID, err = queryUUID(c, "family_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("period"); v != "" {
		if q.Period, err = period.Parse(v); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if q.Year, _, err = queryInt(c, "year"); err != nil {
		respondWithError(c, err)
		return
	}
	if q.Month, _, err = queryInt(c, "month"); err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.alertService.Summary(c.Request.Context(), userID, q)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
