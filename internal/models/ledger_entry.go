package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a ledger entry
type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

// EntryStatus tracks whether an entry still counts toward totals
type EntryStatus string

const (
	EntryStatusConfirmed EntryStatus = "confirmed"
	EntryStatusDeleted   EntryStatus = "deleted"
)

// LedgerEntry is one income or expense record ("bill") of a family.
type LedgerEntry struct {
	Base
	FamilyID      string          `gorm:"type:uuid;not null;index:idx_entries_scope" json:"family_id"`
	UserID        string          `gorm:"type:uuid;not null" json:"user_id"`
	CategoryID    *string         `gorm:"type:uuid;index:idx_entries_scope" json:"category_id,omitempty"`
	Type          EntryType       `gorm:"size:50;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description   string          `gorm:"size:255" json:"description"`
	PaymentMethod string          `gorm:"size:50" json:"payment_method"`
	Remark        string          `json:"remark"`
	Date          time.Time       `gorm:"not null;index:idx_entries_scope" json:"date"`
	Status        EntryStatus     `gorm:"size:50;not null;default:'confirmed'" json:"status"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// IsExpense reports whether the entry counts toward budget usage when confirmed.
func (e *LedgerEntry) IsExpense() bool {
	return e.Type == EntryTypeExpense
}

// TableName pins the table name independent of GORM's pluralizer.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
