package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/notify"
	"famledger/internal/testutil"
)

const testAlertTitle = "Budget alert"

// recordingPublisher keeps every published message in memory.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []*notify.Message
	fail     bool
}

func (p *recordingPublisher) Publish(_ context.Context, msg *notify.Message) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// testEnv wires every service against one isolated database, with a user who
// administers one family that owns a "Dining" category.
type testEnv struct {
	db            *gorm.DB
	families      FamilyServicer
	categories    CategoryServicer
	budgets       BudgetServicer
	ledger        LedgerServicer
	notifications NotificationServicer
	alerts        AlertServicer
	publisher     *recordingPublisher

	user     *models.User
	family   *models.Family
	category *models.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	env := &testEnv{db: db, publisher: &recordingPublisher{}}
	env.families = NewFamilyService(db)
	env.categories = NewCategoryService(db, env.families)
	env.budgets = NewBudgetService(db, NewLedgerQuery(db), env.families, 4)
	env.ledger = NewLedgerService(db, env.families, env.budgets)
	env.notifications = NewNotificationService(db, env.families, env.publisher)
	env.alerts = NewAlertService(db, env.families, env.notifications, testAlertTitle)

	env.user = testutil.CreateTestUser(t, db)
	env.family = testutil.CreateTestFamily(t, db, env.user.ID)
	env.category = testutil.CreateTestCategory(t, db, env.family.ID, "Dining")
	return env
}

// monthlyBudget creates a June 2024 budget for the env's category through the service.
func (e *testEnv) monthlyBudget(t *testing.T, amount string) *models.Budget {
	t.Helper()
	b, err := e.budgets.CreateBudget(e.user.ID, CreateBudgetInput{
		FamilyID:   e.family.ID,
		CategoryID: e.category.ID,
		Amount:     dec(amount),
		Period:     models.BudgetPeriodMonthly,
		Year:       2024,
		Month:      6,
	})
	testutil.AssertNoError(t, err)
	return b
}

// expense records an expense through the ledger service.
func (e *testEnv) expense(t *testing.T, amount string, year, month, day int) *models.LedgerEntry {
	t.Helper()
	entry, err := e.ledger.CreateEntry(e.user.ID, e.family.ID, EntryInput{
		CategoryID: &e.category.ID,
		Type:       models.EntryTypeExpense,
		Amount:     dec(amount),
		Date:       testutil.Date(year, month, day),
	})
	testutil.AssertNoError(t, err)
	return entry
}

// reload reads a budget's stored state.
func (e *testEnv) reload(t *testing.T, budgetID string) *models.Budget {
	t.Helper()
	var b models.Budget
	if err := e.db.Unscoped().Preload("Category").Where("id = ?", budgetID).First(&b).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	return &b
}
