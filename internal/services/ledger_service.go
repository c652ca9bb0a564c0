package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
)

// ledgerService handles ledger entries and reports every committed mutation
// to the budget usage updater.
type ledgerService struct {
	LedgerQuerier
	db       *gorm.DB
	families FamilyServicer
	usage    UsageUpdater
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, families FamilyServicer, usage UsageUpdater) LedgerServicer {
	return &ledgerService{
		LedgerQuerier: NewLedgerQuery(db),
		db:            db,
		families:      families,
		usage:         usage,
	}
}

func validEntryType(t models.EntryType) bool {
	return t == models.EntryTypeIncome || t == models.EntryTypeExpense
}

// touch reports a ledger change for one (category, date) pair.
func (s *ledgerService) touch(e *models.LedgerEntry) {
	s.usage.UpdateBudgetUsage(e.FamilyID, e.CategoryID, e.Amount, !e.IsExpense(), e.Date)
}

// CreateEntry records a confirmed entry in a family's ledger.
func (s *ledgerService) CreateEntry(userID, familyID string, in EntryInput) (*models.LedgerEntry, error) {
	if !validEntryType(in.Type) {
		return nil, apperrors.ErrInvalidEntryType
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if _, err := s.families.RequireMember(userID, familyID); err != nil {
		return nil, err
	}

	var category *models.Category
	if in.CategoryID != nil {
		c, err := findForFamily(s.db, familyID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		category = c
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	entry := &models.LedgerEntry{
		FamilyID:      familyID,
		UserID:        userID,
		CategoryID:    in.CategoryID,
		Type:          in.Type,
		Amount:        in.Amount.Round(2),
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Remark:        in.Remark,
		Date:          period.Day(date),
		Status:        models.EntryStatusConfirmed,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	entry.Category = category

	s.touch(entry)
	return entry, nil
}

// GetEntryByID returns an entry of one of the user's families.
func (s *ledgerService) GetEntryByID(userID, entryID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.db.Preload("Category").
		Where("id = ? AND status = ?", entryID, models.EntryStatusConfirmed).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.families.RequireMember(userID, entry.FamilyID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry edits an entry. Budgets covering the entry before and after
// the edit are both recalculated once the change is committed.
func (s *ledgerService) UpdateEntry(userID, entryID string, in EntryUpdate) (*models.LedgerEntry, error) {
	entry, err := s.GetEntryByID(userID, entryID)
	if err != nil {
		return nil, err
	}
	before := *entry

	updates := make(map[string]interface{})
	if in.Type != nil {
		if !validEntryType(*in.Type) {
			return nil, apperrors.ErrInvalidEntryType
		}
		updates["type"] = *in.Type
		entry.Type = *in.Type
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		amount := in.Amount.Round(2)
		updates["amount"] = amount
		entry.Amount = amount
	}
	switch {
	case in.CategoryID != nil:
		category, err := findForFamily(s.db, entry.FamilyID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		updates["category_id"] = category.ID
		entry.CategoryID = &category.ID
		entry.Category = category
	case in.ClearCategory:
		updates["category_id"] = nil
		entry.CategoryID = nil
		entry.Category = nil
	}
	if in.Description != nil {
		updates["description"] = *in.Description
		entry.Description = *in.Description
	}
	if in.PaymentMethod != nil {
		updates["payment_method"] = *in.PaymentMethod
		entry.PaymentMethod = *in.PaymentMethod
	}
	if in.Remark != nil {
		updates["remark"] = *in.Remark
		entry.Remark = *in.Remark
	}
	if in.Date != nil {
		updates["date"] = period.Day(*in.Date)
		entry.Date = period.Day(*in.Date)
	}

	if len(updates) == 0 {
		return entry, nil
	}

	if err := s.db.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.touch(&before)
	if !sameScope(&before, entry) {
		s.touch(entry)
	}
	return entry, nil
}

// DeleteEntry marks an entry deleted and soft-deletes the row.
func (s *ledgerService) DeleteEntry(userID, entryID string) error {
	entry, err := s.GetEntryByID(userID, entryID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).
			Update("status", models.EntryStatusDeleted).Error; err != nil {
			return err
		}
		return tx.Delete(&models.LedgerEntry{}, "id = ?", entry.ID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Named("ledger").Infow("entry deleted", "entry_id", entry.ID, "family_id", entry.FamilyID, "user_id", userID)
	s.touch(entry)
	return nil
}

// sameScope reports whether two versions of an entry feed the same budgets.
func sameScope(a, b *models.LedgerEntry) bool {
	if a.Type != b.Type || !a.Date.Equal(b.Date) {
		return false
	}
	if a.CategoryID == nil || b.CategoryID == nil {
		return a.CategoryID == b.CategoryID
	}
	return *a.CategoryID == *b.CategoryID
}

// GetFamilyEntries retrieves a paginated, filtered list of a family's confirmed entries.
func (s *ledgerService) GetFamilyEntries(userID, familyID string, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
	if _, err := s.families.RequireMember(userID, familyID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.LedgerEntry{}).Where("family_id = ? AND status = ?", familyID, models.EntryStatusConfirmed)
	base = applyEntryFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.LedgerEntry
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyEntryFilters(q *gorm.DB, f EntryFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", period.Day(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date < ?", period.Day(*f.ToDate).AddDate(0, 0, 1))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	return q
}

