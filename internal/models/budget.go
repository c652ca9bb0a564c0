package models

import "github.com/shopspring/decimal"

// BudgetPeriod represents the recurrence granularity of a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// DefaultAlertThreshold is the utilization percentage at which budgets start alerting.
var DefaultAlertThreshold = decimal.NewFromInt(80)

// Budget is a spending ceiling for one category over one period window.
// UsedAmount is derived from the ledger and only written by the recalculator.
type Budget struct {
	Base
	FamilyID       string          `gorm:"type:uuid;not null;index:idx_budgets_scope" json:"family_id"`
	CategoryID     string          `gorm:"type:uuid;not null;index:idx_budgets_scope" json:"category_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Period         BudgetPeriod    `gorm:"size:50;not null;index:idx_budgets_scope" json:"period"`
	Year           int             `gorm:"not null;index:idx_budgets_scope" json:"year"`
	Month          *int            `gorm:"index:idx_budgets_scope" json:"month,omitempty"`
	UsedAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"used_amount"`
	AlertThreshold decimal.Decimal `gorm:"type:decimal(5,2);not null;default:80" json:"alert_threshold"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	Description    string          `gorm:"size:200" json:"description"`
	CreatedBy      string          `gorm:"type:uuid;not null" json:"created_by"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
}

// Remaining returns the unspent part of the ceiling, which is negative when over budget.
func (b *Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.UsedAmount)
}

// IsOverBudget reports whether usage has exceeded the ceiling.
func (b *Budget) IsOverBudget() bool {
	return b.UsedAmount.GreaterThan(b.Amount)
}
