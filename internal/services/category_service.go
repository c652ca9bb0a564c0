package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db       *gorm.DB
	families FamilyServicer
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, families FamilyServicer) CategoryServicer {
	return &categoryService{db: db, families: families}
}

// CreateCategory creates a category private to one family.
func (s *categoryService) CreateCategory(
	userID string,
	familyID string,
	name string,
	categoryType models.CategoryType,
	icon string,
	color string,
	sortOrder int,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be 'income' or 'expense'")
	}
	if _, err := s.families.RequireMember(userID, familyID); err != nil {
		return nil, err
	}

	// Names are unique among the categories a family can see, shared ones included.
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("(family_id = ? OR family_id IS NULL) AND name = ? AND type = ?", familyID, name, categoryType).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		FamilyID:  &familyID,
		Name:      name,
		Type:      categoryType,
		Icon:      icon,
		Color:     color,
		SortOrder: sortOrder,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetFamilyCategories lists the shared categories plus the family's own,
// optionally restricted to one type.
func (s *categoryService) GetFamilyCategories(
	userID, familyID string,
	categoryType *models.CategoryType,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.Category], error) {
	if _, err := s.families.RequireMember(userID, familyID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.Category{}).Where("family_id = ? OR family_id IS NULL", familyID)
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("type, sort_order, name").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID returns a category if it is shared or belongs to one of
// the user's active families.
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if category.IsShared() {
		return &category, nil
	}
	if _, err := s.families.RequireMember(userID, *category.FamilyID); err != nil {
		if errors.Is(err, apperrors.ErrNotFamilyMember) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// findForFamily loads a category a family is allowed to use.
func findForFamily(db *gorm.DB, familyID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !category.BelongsTo(familyID) {
		return nil, apperrors.ErrCategoryNotInFamily
	}
	return &category, nil
}
