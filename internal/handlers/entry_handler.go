package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// EntryHandler handles ledger entries ("bills").
type EntryHandler struct {
	ledgerService services.LedgerServicer
	auditService  services.AuditServicer
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledgerService services.LedgerServicer, auditService services.AuditServicer) *EntryHandler {
	return &EntryHandler{ledgerService: ledgerService, auditService: auditService}
}

// CreateEntryRequest represents the request payload for recording an entry.
type CreateEntryRequest struct {
	CategoryID    *string          `json:"category_id" binding:"omitempty,uuid"`
	Type          models.EntryType `json:"type" binding:"required,entry_type"`
	Amount        decimal.Decimal  `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"42.50"`
	Description   string           `json:"description" binding:"max=255"`
	PaymentMethod string           `json:"payment_method" binding:"max=50"`
	Remark        string           `json:"remark" binding:"max=1000"`
	Date          *string          `json:"date"`
}

// UpdateEntryRequest represents the request payload for editing an entry.
// Setting clear_category removes the category.
type UpdateEntryRequest struct {
	CategoryID    *string           `json:"category_id" binding:"omitempty,uuid"`
	ClearCategory bool              `json:"clear_category"`
	Type          *models.EntryType `json:"type" binding:"omitempty,entry_type"`
	Amount        *decimal.Decimal  `json:"amount" swaggertype:"string" example:"42.50"`
	Description   *string           `json:"description" binding:"omitempty,max=255"`
	PaymentMethod *string           `json:"payment_method" binding:"omitempty,max=50"`
	Remark        *string           `json:"remark" binding:"omitempty,max=1000"`
	Date          *string           `json:"date"`
}

// CreateEntry records a new entry in a family's ledger.
// @Summary     Create a ledger entry
// @Description Record income or an expense; affected budgets are recalculated
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Family ID"
// @Param       request body CreateEntryRequest true "Entry details"
// @Success     201 {object} models.LedgerEntry "Entry created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /families/{id}/entries [post]
func (h *EntryHandler) CreateEntry(c *gin.Context) {
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

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.EntryInput{
		CategoryID:    req.CategoryID,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Remark:        req.Remark,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		in.Date = parsed
	}

	entry, err := h.ledgerService.CreateEntry(userID, familyID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateEntry, "ledger_entry", entry.ID, c.ClientIP(),
		map[string]interface{}{"type": entry.Type, "amount": entry.Amount.StringFixed(2)})

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// GetEntries lists a family's confirmed entries.
// @Summary     List ledger entries
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id          path  string true  "Family ID"
// @Param       from_date   query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date     query string false "Filter by end date, inclusive (RFC3339 or YYYY-MM-DD)"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Filter by category"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.LedgerEntry] "Paginated entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /families/{id}/entries [get]
func (h *EntryHandler) GetEntries(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseEntryFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.GetFamilyEntries(userID, familyID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseEntryFilter(c *gin.Context) (services.EntryFilter, error) {
	var filter services.EntryFilter

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("type"); v != "" {
		entryType := models.EntryType(v)
		switch entryType {
		case models.EntryTypeIncome, models.EntryTypeExpense:
			filter.Type = &entryType
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income or expense")
		}
	}

	if v := c.Query("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id")
		}
		catID := id.String()
		filter.CategoryID = &catID
	}

	return filter, nil
}

// GetEntry returns one entry.
// @Summary     Get ledger entry
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Entry ID"
// @Success     200 {object} models.LedgerEntry "Entry"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id} [get]
func (h *EntryHandler) GetEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.ledgerService.GetEntryByID(userID, entryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// UpdateEntry edits an entry.
// @Summary     Update ledger entry
// @Description Budgets covering the entry before and after the edit are recalculated
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Entry ID"
// @Param       request body UpdateEntryRequest true "Fields to change"
// @Success     200 {object} models.LedgerEntry "Entry updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id} [put]
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.EntryUpdate{
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Remark:        req.Remark,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		in.Date = &parsed
	}

	entry, err := h.ledgerService.UpdateEntry(userID, entryID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateEntry, "ledger_entry", entry.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// DeleteEntry removes an entry from the ledger.
// @Summary     Delete ledger entry
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Entry ID"
// @Success     200 {object} map[string]string "Entry deleted"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id} [delete]
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ledgerService.DeleteEntry(userID, entryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteEntry, "ledger_entry", entryID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}
