package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// FamilyServicer defines the contract for families and memberships. Every
// other service scopes its reads and writes through RequireMember.
type FamilyServicer interface {
	CreateFamily(userID, name, description string) (*models.Family, error)
	GetUserFamilies(userID string) ([]models.Family, error)
	GetFamily(userID, familyID string) (*models.Family, error)
	AddMember(actorID, familyID, email string, role models.MemberRole, nickname string) (*models.FamilyMember, error)
	LeaveFamily(userID, familyID string) error
	ActiveFamilyIDs(userID string) ([]string, error)
	RequireMember(userID, familyID string) (*models.FamilyMember, error)
	RequireAdmin(userID, familyID string) (*models.FamilyMember, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, familyID, name string, categoryType models.CategoryType, icon, color string, sortOrder int) (*models.Category, error)
	GetFamilyCategories(userID, familyID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
}

// LedgerQuerier aggregates ledger entries for budget usage.
type LedgerQuerier interface {
	// SumExpense totals confirmed, non-deleted expense entries of one family
	// and category dated from start through end, both days inclusive.
	SumExpense(familyID, categoryID string, start, end time.Time) (decimal.Decimal, error)
}

// UsageUpdater is notified after every committed ledger mutation.
type UsageUpdater interface {
	UpdateBudgetUsage(familyID string, categoryID *string, amount decimal.Decimal, isIncome bool, on time.Time)
}

// EntryInput carries the fields of a new ledger entry.
type EntryInput struct {
	CategoryID    *string
	Type          models.EntryType
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Remark        string
	Date          time.Time
}

// EntryUpdate holds the optional fields of an entry edit. ClearCategory
// removes the category when CategoryID is nil.
type EntryUpdate struct {
	CategoryID    *string
	ClearCategory bool
	Type          *models.EntryType
	Amount        *decimal.Decimal
	Description   *string
	PaymentMethod *string
	Remark        *string
	Date          *time.Time
}

// EntryFilter holds optional filter parameters for listing ledger entries.
type EntryFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.EntryType
	CategoryID *string
}

// LedgerServicer defines the contract for ledger entries ("bills").
type LedgerServicer interface {
	LedgerQuerier
	CreateEntry(userID, familyID string, in EntryInput) (*models.LedgerEntry, error)
	UpdateEntry(userID, entryID string, in EntryUpdate) (*models.LedgerEntry, error)
	DeleteEntry(userID, entryID string) error
	GetEntryByID(userID, entryID string) (*models.LedgerEntry, error)
	GetFamilyEntries(userID, familyID string, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error)
}

// CreateBudgetInput carries the fields of a new budget. Month is ignored for
// yearly budgets and AlertThreshold defaults to 80 when nil.
type CreateBudgetInput struct {
	FamilyID       string
	CategoryID     string
	Amount         decimal.Decimal
	Period         models.BudgetPeriod
	Year           int
	Month          int
	AlertThreshold *decimal.Decimal
	Description    string
}

// UpdateBudgetInput holds the optional fields of a budget edit. Changing the
// category, period, year or month moves the budget to a new window.
type UpdateBudgetInput struct {
	CategoryID     *string
	Amount         *decimal.Decimal
	Period         *models.BudgetPeriod
	Year           *int
	Month          *int
	AlertThreshold *decimal.Decimal
	Description    *string
	IsActive       *bool
}

// BudgetFilter holds optional filter parameters for listing budgets. A nil
// FamilyID lists budgets of every family the user is an active member of.
type BudgetFilter struct {
	FamilyID *string
	Year     *int
	Month    *int
	Period   *models.BudgetPeriod
	IsActive *bool
}

// RepairResult reports a family-wide recalculation pass.
type RepairResult struct {
	FamilyID     string `json:"family_id"`
	Total        int    `json:"total"`
	Recalculated int    `json:"recalculated"`
	Failed       int    `json:"failed"`
}

// BudgetServicer defines the contract for budgets and their derived usage.
type BudgetServicer interface {
	UsageUpdater
	CreateBudget(userID string, in CreateBudgetInput) (*models.Budget, error)
	GetBudgets(userID string, page pagination.PageRequest, filter BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, in UpdateBudgetInput) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	Recalculate(budgetID string) (*models.Budget, error)
	RecalculateFamily(ctx context.Context, familyID string) (*RepairResult, error)
}

// AlertSeverity ranks an alert.
type AlertSeverity string

const (
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

// AlertType distinguishes threshold warnings from exceeded budgets.
type AlertType string

const (
	AlertTypeBudgetWarning AlertType = "budget_warning"
	AlertTypeOverBudget    AlertType = "over_budget"
)

// Alert is a budget whose utilization reached its threshold. It is computed
// on demand and only stored once turned into a notification.
type Alert struct {
	BudgetID        string          `json:"budget_id"`
	FamilyID        string          `json:"family_id"`
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Type            AlertType       `json:"type"`
	Spent           decimal.Decimal `json:"spent"`
	Ceiling         decimal.Decimal `json:"ceiling"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
	Threshold       decimal.Decimal `json:"threshold"`
	Severity        AlertSeverity   `json:"severity"`
	Message         string          `json:"message"`
}

// SummaryQuery selects the period a budget summary covers. A nil FamilyID
// covers every family the user is an active member of; zero Year and Month
// default to the current month.
type SummaryQuery struct {
	FamilyID *string
	Period   models.BudgetPeriod
	Year     int
	Month    int
}

// CategoryBudget is one budget line of a summary.
type CategoryBudget struct {
	BudgetID        string          `json:"budget_id"`
	FamilyID        string          `json:"family_id"`
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Amount          decimal.Decimal `json:"amount"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
	AlertThreshold  decimal.Decimal `json:"alert_threshold"`
	IsOverBudget    bool            `json:"is_over_budget"`
}

// BudgetSummary aggregates the budgets of one period.
type BudgetSummary struct {
	Year             int              `json:"year"`
	Month            *int             `json:"month,omitempty"`
	Period           string           `json:"period"`
	Start            time.Time        `json:"start"`
	End              time.Time        `json:"end"`
	TotalBudget      decimal.Decimal  `json:"total_budget"`
	TotalSpent       decimal.Decimal  `json:"total_spent"`
	Remaining        decimal.Decimal  `json:"remaining"`
	UtilizationRate  decimal.Decimal  `json:"utilization_rate"`
	CategoryBudgets  []CategoryBudget `json:"category_budgets"`
	Alerts           []Alert          `json:"alerts"`
	NewNotifications int              `json:"new_notifications"`
}

// AlertServicer evaluates budgets against their thresholds and turns new
// alerts into notifications.
type AlertServicer interface {
	EvaluateFamily(familyID string, period models.BudgetPeriod, year, month int) ([]Alert, error)
	Dedupe(userID string, since time.Time, candidates []Alert) ([]Alert, error)
	Persist(ctx context.Context, userID string, alerts []Alert) []models.Notification
	Summary(ctx context.Context, userID string, q SummaryQuery) (*BudgetSummary, error)
}

// NotificationFilter holds optional filter parameters for listing notifications.
type NotificationFilter struct {
	Status *models.NotificationStatus
}

// NotificationPage is a page of notifications plus the user's unread total.
type NotificationPage struct {
	pagination.PageResponse[models.Notification]
	UnreadCount int64 `json:"unread_count"`
}

// NotificationServicer defines the contract for the notification sink and inbox.
type NotificationServicer interface {
	Create(ctx context.Context, n *models.Notification) error
	GetUserNotifications(userID string, page pagination.PageRequest, filter NotificationFilter) (*NotificationPage, error)
	MarkRead(userID, notificationID string) error
	MarkAllRead(userID string) (int64, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
