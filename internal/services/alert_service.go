package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/period"
)

var hundred = decimal.NewFromInt(100)

// alertService evaluates budgets against their thresholds and persists the
// alerts a user has not been told about yet in the current period.
type alertService struct {
	db            *gorm.DB
	families      FamilyServicer
	notifications NotificationServicer
	title         string
}

// NewAlertService creates a new AlertServicer. title is the notification
// title alerts are stored under and deduplicated by.
func NewAlertService(db *gorm.DB, families FamilyServicer, notifications NotificationServicer, title string) AlertServicer {
	return &alertService{
		db:            db,
		families:      families,
		notifications: notifications,
		title:         title,
	}
}

// utilization returns used as a percentage of amount, rounded to 2 places.
func utilization(used, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return used.Div(amount).Mul(hundred).Round(2)
}

// evaluateBudget returns the alert for b, if its usage reached the threshold.
// Budgets with a zero ceiling never alert.
func evaluateBudget(b *models.Budget) (Alert, bool) {
	if !b.Amount.IsPositive() {
		return Alert{}, false
	}
	rate := utilization(b.UsedAmount, b.Amount)
	if rate.LessThan(b.AlertThreshold) {
		return Alert{}, false
	}

	name := b.Category.Name
	if name == "" {
		name = "Uncategorized"
	}

	alert := Alert{
		BudgetID:        b.ID,
		FamilyID:        b.FamilyID,
		CategoryID:      b.CategoryID,
		CategoryName:    name,
		Spent:           b.UsedAmount,
		Ceiling:         b.Amount,
		UtilizationRate: rate,
		Threshold:       b.AlertThreshold,
	}
	if b.IsOverBudget() {
		alert.Type = AlertTypeOverBudget
		alert.Severity = AlertSeverityHigh
		alert.Message = fmt.Sprintf("%s is over budget by %s", name, b.UsedAmount.Sub(b.Amount).StringFixed(2))
	} else {
		alert.Type = AlertTypeBudgetWarning
		alert.Severity = AlertSeverityMedium
		alert.Message = fmt.Sprintf("%s budget usage has reached %s%%", name, rate.StringFixed(1))
	}
	return alert, true
}

func evaluateBudgets(budgets []models.Budget) []Alert {
	alerts := []Alert{}
	for i := range budgets {
		if alert, ok := evaluateBudget(&budgets[i]); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// activeBudgets loads the active budgets of the given families stored under
// one (period, year, month) key.
func (s *alertService) activeBudgets(familyIDs []string, p models.BudgetPeriod, year int, month *int) ([]models.Budget, error) {
	q := s.db.Preload("Category").
		Where("family_id IN ? AND period = ? AND year = ? AND is_active = ?", familyIDs, p, year, true)
	if month == nil {
		q = q.Where("month IS NULL")
	} else {
		q = q.Where("month = ?", *month)
	}

	var budgets []models.Budget
	if err := q.Order("created_at").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// EvaluateFamily returns the alerts of a family's active budgets for the
// period containing the given month.
func (s *alertService) EvaluateFamily(familyID string, p models.BudgetPeriod, year, month int) ([]Alert, error) {
	_, stored, err := period.Resolve(p, year, month)
	if err != nil {
		return nil, err
	}
	budgets, err := s.activeBudgets([]string{familyID}, p, year, stored)
	if err != nil {
		return nil, err
	}
	return evaluateBudgets(budgets), nil
}

// Dedupe drops candidates whose message the user was already sent under the
// alert title since the given instant, and candidates repeating an earlier
// candidate's message.
func (s *alertService) Dedupe(userID string, since time.Time, candidates []Alert) ([]Alert, error) {
	if len(candidates) == 0 {
		return []Alert{}, nil
	}

	messages := make([]string, 0, len(candidates))
	for _, c := range candidates {
		messages = append(messages, c.Message)
	}

	var sent []string
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND title = ? AND created_at >= ? AND message IN ?", userID, s.title, since.UTC(), messages).
		Pluck("message", &sent).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	seen := make(map[string]struct{}, len(sent)+len(candidates))
	for _, m := range sent {
		seen[m] = struct{}{}
	}

	fresh := []Alert{}
	for _, c := range candidates {
		if _, ok := seen[c.Message]; ok {
			continue
		}
		seen[c.Message] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

// Persist stores one notification per alert for the user. Failures are
// logged and skipped; the created notifications are returned.
func (s *alertService) Persist(ctx context.Context, userID string, alerts []Alert) []models.Notification {
	created := make([]models.Notification, 0, len(alerts))
	for _, a := range alerts {
		recipient, familyID := userID, a.FamilyID
		n := &models.Notification{
			FamilyID: &familyID,
			UserID:   &recipient,
			Title:    s.title,
			Message:  a.Message,
			Type:     string(a.Type),
			Status:   models.NotificationStatusUnread,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			logger.Named("alert").Errorw("failed to persist budget alert",
				"user_id", userID,
				"budget_id", a.BudgetID,
				"error", err,
			)
			continue
		}
		created = append(created, *n)
	}
	return created
}

// Summary totals the user's budgets for one period, evaluates them, and
// notifies the user of alerts not yet sent this period. Usage figures are
// read as stored; alert persistence failures leave the summary intact.
func (s *alertService) Summary(ctx context.Context, userID string, q SummaryQuery) (*BudgetSummary, error) {
	p := q.Period
	if p == "" {
		p = models.BudgetPeriodMonthly
	}
	now := time.Now().UTC()
	year, month := q.Year, q.Month
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	window, stored, err := period.Resolve(p, year, month)
	if err != nil {
		return nil, err
	}

	var familyIDs []string
	if q.FamilyID != nil {
		if _, err := s.families.RequireMember(userID, *q.FamilyID); err != nil {
			return nil, err
		}
		familyIDs = []string{*q.FamilyID}
	} else {
		if familyIDs, err = s.families.ActiveFamilyIDs(userID); err != nil {
			return nil, err
		}
	}

	summary := &BudgetSummary{
		Year:            year,
		Month:           stored,
		Period:          string(p),
		Start:           window.Start,
		End:             window.End,
		TotalBudget:     decimal.Zero,
		TotalSpent:      decimal.Zero,
		CategoryBudgets: []CategoryBudget{},
		Alerts:          []Alert{},
	}
	if len(familyIDs) == 0 {
		summary.Remaining = decimal.Zero
		summary.UtilizationRate = decimal.Zero
		return summary, nil
	}

	budgets, err := s.activeBudgets(familyIDs, p, year, stored)
	if err != nil {
		return nil, err
	}

	for i := range budgets {
		b := &budgets[i]
		summary.TotalBudget = summary.TotalBudget.Add(b.Amount)
		summary.TotalSpent = summary.TotalSpent.Add(b.UsedAmount)
		summary.CategoryBudgets = append(summary.CategoryBudgets, CategoryBudget{
			BudgetID:        b.ID,
			FamilyID:        b.FamilyID,
			CategoryID:      b.CategoryID,
			CategoryName:    b.Category.Name,
			Amount:          b.Amount,
			Spent:           b.UsedAmount,
			Remaining:       b.Remaining(),
			UtilizationRate: utilization(b.UsedAmount, b.Amount),
			AlertThreshold:  b.AlertThreshold,
			IsOverBudget:    b.IsOverBudget(),
		})
	}
	summary.Remaining = summary.TotalBudget.Sub(summary.TotalSpent)
	summary.UtilizationRate = utilization(summary.TotalSpent, summary.TotalBudget)
	summary.Alerts = evaluateBudgets(budgets)

	fresh, err := s.Dedupe(userID, window.Start, summary.Alerts)
	if err != nil {
		logger.Named("alert").Errorw("alert deduplication failed, skipping notifications",
			"user_id", userID,
			"error", err,
		)
		return summary, nil
	}
	summary.NewNotifications = len(s.Persist(ctx, userID, fresh))
	return summary, nil
}
