package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category classifies ledger entries. A nil FamilyID marks a shared,
// system-wide category visible to every family.
type Category struct {
	Base
	FamilyID  *string      `gorm:"type:uuid;index" json:"family_id,omitempty"`
	Name      string       `gorm:"size:50;not null" json:"name"`
	Type      CategoryType `gorm:"size:50;not null" json:"type"`
	Icon      string       `gorm:"size:50" json:"icon"`
	Color     string       `gorm:"size:10" json:"color"`
	SortOrder int          `gorm:"default:0" json:"sort_order"`
}

// IsShared reports whether the category is visible to all families.
func (c *Category) IsShared() bool {
	return c.FamilyID == nil
}

// BelongsTo reports whether the category may be used by the given family.
func (c *Category) BelongsTo(familyID string) bool {
	return c.FamilyID == nil || *c.FamilyID == familyID
}
