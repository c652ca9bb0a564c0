package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"famledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC of the given day.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestFamily creates an active family with the given user as its admin.
func CreateTestFamily(t *testing.T, db *gorm.DB, adminID string) *models.Family {
	t.Helper()

	family := &models.Family{
		Name:      fmt.Sprintf("Test Family %d", nextID()),
		CreatorID: adminID,
		Status:    models.FamilyStatusActive,
	}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}
	AddTestMember(t, db, family.ID, adminID, models.MemberRoleAdmin)
	return family
}

// AddTestMember adds an active membership.
func AddTestMember(t *testing.T, db *gorm.DB, familyID, userID string, role models.MemberRole) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		Status:   models.MemberStatusActive,
		JoinedAt: time.Now().UTC(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	return member
}

// CreateTestCategory creates an expense category owned by the family.
// An empty familyID creates a shared category.
func CreateTestCategory(t *testing.T, db *gorm.DB, familyID, name string) *models.Category {
	t.Helper()

	if name == "" {
		name = fmt.Sprintf("Test Category %d", nextID())
	}
	category := &models.Category{
		Name: name,
		Type: models.CategoryTypeExpense,
	}
	if familyID != "" {
		category.FamilyID = &familyID
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestEntry inserts a confirmed ledger entry directly, bypassing budget
// recalculation.
func CreateTestEntry(t *testing.T, db *gorm.DB, familyID, userID, categoryID string, entryType models.EntryType, amount string, date time.Time) *models.LedgerEntry {
	t.Helper()

	entry := &models.LedgerEntry{
		FamilyID:   familyID,
		UserID:     userID,
		CategoryID: &categoryID,
		Type:       entryType,
		Amount:     decimal.RequireFromString(amount),
		Date:       date,
		Status:     models.EntryStatusConfirmed,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}

// CreateTestBudget inserts an active budget with the default threshold and
// zero usage. Month must already be normalised for the period.
func CreateTestBudget(t *testing.T, db *gorm.DB, familyID, categoryID, createdBy string, period models.BudgetPeriod, year int, month *int, amount string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		FamilyID:       familyID,
		CategoryID:     categoryID,
		Amount:         decimal.RequireFromString(amount),
		Period:         period,
		Year:           year,
		Month:          month,
		UsedAmount:     decimal.Zero,
		AlertThreshold: models.DefaultAlertThreshold,
		IsActive:       true,
		CreatedBy:      createdBy,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
