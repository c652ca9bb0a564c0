package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/period"
)

// ledgerQuery aggregates ledger entries.
type ledgerQuery struct {
	db *gorm.DB
}

// NewLedgerQuery creates a new LedgerQuerier.
func NewLedgerQuery(db *gorm.DB) LedgerQuerier {
	return &ledgerQuery{db: db}
}

// SumExpense totals confirmed expense entries dated start through end. The
// end day is included by comparing against the following midnight.
func (q *ledgerQuery) SumExpense(familyID, categoryID string, start, end time.Time) (decimal.Decimal, error) {
	from := period.Day(start)
	until := period.Day(end).AddDate(0, 0, 1)

	var sum decimal.Decimal
	err := q.db.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("family_id = ? AND category_id = ? AND type = ? AND status = ? AND date >= ? AND date < ?",
			familyID, categoryID, models.EntryTypeExpense, models.EntryStatusConfirmed, from, until).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sum.Round(2), nil
}
