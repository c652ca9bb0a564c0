package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/keylock"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
)

var maxThreshold = decimal.NewFromInt(100)

// budgetService handles budgets and keeps their used amount in step with the ledger.
type budgetService struct {
	db       *gorm.DB
	ledger   LedgerQuerier
	families FamilyServicer
	locks    *keylock.Locker
	workers  int
}

// NewBudgetService creates a new BudgetServicer. workers bounds the
// parallelism of RecalculateFamily.
func NewBudgetService(db *gorm.DB, ledger LedgerQuerier, families FamilyServicer, workers int) BudgetServicer {
	if workers < 1 {
		workers = 1
	}
	return &budgetService{
		db:       db,
		ledger:   ledger,
		families: families,
		locks:    keylock.New(),
		workers:  workers,
	}
}

// scopeKey identifies the budgets that share one window of one category.
func scopeKey(b *models.Budget) string {
	month := 0
	if b.Month != nil {
		month = *b.Month
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", b.FamilyID, b.CategoryID, b.Period, b.Year, month)
}

func validThreshold(t decimal.Decimal) bool {
	return t.IsPositive() && t.LessThanOrEqual(maxThreshold)
}

// CreateBudget creates a budget and computes its initial usage.
func (s *budgetService) CreateBudget(userID string, in CreateBudgetInput) (*models.Budget, error) {
	if _, err := s.families.RequireMember(userID, in.FamilyID); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	threshold := models.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}
	if !validThreshold(threshold) {
		return nil, apperrors.ErrInvalidThreshold
	}

	_, month, err := period.Resolve(in.Period, in.Year, in.Month)
	if err != nil {
		return nil, err
	}

	category, err := findForFamily(s.db, in.FamilyID, in.CategoryID)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		FamilyID:       in.FamilyID,
		CategoryID:     category.ID,
		Amount:         in.Amount.Round(2),
		Period:         in.Period,
		Year:           in.Year,
		Month:          month,
		UsedAmount:     decimal.Zero,
		AlertThreshold: threshold.Round(2),
		IsActive:       true,
		Description:    strings.TrimSpace(in.Description),
		CreatedBy:      userID,
	}
	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.recalculate(budget); err != nil {
		logger.Named("budget").Errorw("initial usage calculation failed", "budget_id", budget.ID, "error", err)
	}
	budget.Category = *category
	return budget, nil
}

// GetBudgets returns a paginated list of budgets visible to the user.
func (s *budgetService) GetBudgets(userID string, page pagination.PageRequest, filter BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
	var familyIDs []string
	if filter.FamilyID != nil {
		if _, err := s.families.RequireMember(userID, *filter.FamilyID); err != nil {
			return nil, err
		}
		familyIDs = []string{*filter.FamilyID}
	} else {
		ids, err := s.families.ActiveFamilyIDs(userID)
		if err != nil {
			return nil, err
		}
		familyIDs = ids
	}

	page.Defaults()
	if len(familyIDs) == 0 {
		result := pagination.NewPageResponse[models.Budget](nil, page.Page, page.PageSize, 0)
		return &result, nil
	}

	base := s.db.Model(&models.Budget{}).Where("family_id IN ?", familyIDs)
	if filter.Year != nil {
		base = base.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		base = base.Where("month = ?", *filter.Month)
	}
	if filter.Period != nil {
		base = base.Where("period = ?", *filter.Period)
	}
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("year DESC, month DESC, created_at DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *budgetService) load(budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetByID returns a budget of one of the user's families.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	budget, err := s.load(budgetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.families.RequireMember(userID, budget.FamilyID); err != nil {
		return nil, err
	}
	return budget, nil
}

// UpdateBudget edits a budget. A change of category, period, year or month
// re-resolves the window and recalculates the usage from scratch.
func (s *budgetService) UpdateBudget(userID, budgetID string, in UpdateBudgetInput) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	rescope := false

	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = in.Amount.Round(2)
	}
	if in.AlertThreshold != nil {
		if !validThreshold(*in.AlertThreshold) {
			return nil, apperrors.ErrInvalidThreshold
		}
		updates["alert_threshold"] = in.AlertThreshold.Round(2)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
		rescope = rescope || *in.IsActive
	}
	if in.CategoryID != nil && *in.CategoryID != budget.CategoryID {
		category, err := findForFamily(s.db, budget.FamilyID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		updates["category_id"] = category.ID
		rescope = true
	}

	if in.Period != nil || in.Year != nil || in.Month != nil {
		p, year, month := budget.Period, budget.Year, 1
		if budget.Month != nil {
			month = *budget.Month
		}
		if in.Period != nil {
			p = *in.Period
		}
		if in.Year != nil {
			year = *in.Year
		}
		if in.Month != nil {
			month = *in.Month
		}
		_, stored, err := period.Resolve(p, year, month)
		if err != nil {
			return nil, err
		}
		updates["period"] = p
		updates["year"] = year
		updates["month"] = stored
		rescope = true
	}

	if len(updates) == 0 {
		return budget, nil
	}

	if err := s.db.Model(&models.Budget{}).Where("id = ?", budget.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updated, err := s.load(budget.ID)
	if err != nil {
		return nil, err
	}
	if rescope {
		if err := s.recalculate(updated); err != nil {
			logger.Named("budget").Errorw("usage recalculation after update failed", "budget_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}

// DeleteBudget deactivates and soft-deletes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Budget{}).Where("id = ?", budget.ID).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Budget{}, "id = ?", budget.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Recalculate re-derives one budget's used amount from the ledger.
func (s *budgetService) Recalculate(budgetID string) (*models.Budget, error) {
	budget, err := s.load(budgetID)
	if err != nil {
		return nil, err
	}
	if err := s.recalculate(budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// recalculate overwrites b.UsedAmount with a fresh sum over b's window.
// Budgets sharing a scope are recalculated one at a time.
func (s *budgetService) recalculate(b *models.Budget) error {
	unlock := s.locks.Lock(scopeKey(b))
	defer unlock()

	w, err := period.ForBudget(b)
	if err != nil {
		return err
	}

	used, err := s.ledger.SumExpense(b.FamilyID, b.CategoryID, w.Start, w.End)
	if err != nil {
		return err
	}

	if err := s.db.Model(&models.Budget{}).Where("id = ?", b.ID).Update("used_amount", used).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	b.UsedAmount = used

	logger.Named("budget").Debugw("budget usage recalculated",
		"budget_id", b.ID,
		"used_amount", used.StringFixed(2),
		"window_start", w.Start.Format(time.DateOnly),
		"window_end", w.End.Format(time.DateOnly),
	)
	return nil
}

// RecalculateFamily recalculates every active budget of a family with
// bounded parallelism. Individual failures are counted, not returned.
func (s *budgetService) RecalculateFamily(ctx context.Context, familyID string) (*RepairResult, error) {
	var budgets []models.Budget
	if err := s.db.WithContext(ctx).Where("family_id = ? AND is_active = ?", familyID, true).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Named("budget")
	var recalculated, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range budgets {
		b := &budgets[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.recalculate(b); err != nil {
				failed.Add(1)
				log.Errorw("budget recalculation failed", "budget_id", b.ID, "family_id", familyID, "error", err)
				return nil
			}
			recalculated.Add(1)
			return nil
		})
	}
	err := g.Wait()

	result := &RepairResult{
		FamilyID:     familyID,
		Total:        len(budgets),
		Recalculated: int(recalculated.Load()),
		Failed:       int(failed.Load()),
	}
	log.Infow("family budget repair finished",
		"family_id", familyID,
		"total", result.Total,
		"recalculated", result.Recalculated,
		"failed", result.Failed,
	)
	return result, err
}

// UpdateBudgetUsage recalculates the active budgets of a family and category
// whose window contains the day on. Income entries never count toward a
// budget, so they are ignored. Failures are logged and never returned so a
// ledger write is never undone by a stale budget.
func (s *budgetService) UpdateBudgetUsage(familyID string, categoryID *string, amount decimal.Decimal, isIncome bool, on time.Time) {
	if isIncome || categoryID == nil {
		return
	}
	log := logger.Named("budget")

	// every window lies inside one calendar year
	var budgets []models.Budget
	err := s.db.Where("family_id = ? AND category_id = ? AND year = ? AND is_active = ?",
		familyID, *categoryID, period.Day(on).Year(), true).
		Find(&budgets).Error
	if err != nil {
		log.Errorw("failed to load budgets for usage update",
			"family_id", familyID, "category_id", *categoryID, "error", err)
		return
	}

	for i := range budgets {
		b := &budgets[i]
		w, err := period.ForBudget(b)
		if err != nil {
			log.Warnw("skipping budget with unresolvable period", "budget_id", b.ID, "error", err)
			continue
		}
		if !w.Contains(on) {
			continue
		}
		if err := s.recalculate(b); err != nil {
			log.Errorw("budget usage update failed",
				"budget_id", b.ID,
				"family_id", familyID,
				"category_id", *categoryID,
				"amount", amount.StringFixed(2),
				"error", err,
			)
		}
	}
}
