package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
)

// familyService handles families and their memberships.
type familyService struct {
	db *gorm.DB
}

// NewFamilyService creates a new FamilyServicer.
func NewFamilyService(db *gorm.DB) FamilyServicer {
	return &familyService{db: db}
}

// CreateFamily creates a family and makes its creator the first admin.
func (s *familyService) CreateFamily(userID, name, description string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "family name is required")
	}

	family := &models.Family{
		Name:        name,
		Description: description,
		CreatorID:   userID,
		Status:      models.FamilyStatusActive,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(family).Error; err != nil {
			return err
		}
		admin := &models.FamilyMember{
			FamilyID: family.ID,
			UserID:   userID,
			Role:     models.MemberRoleAdmin,
			Status:   models.MemberStatusActive,
			JoinedAt: time.Now().UTC(),
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		family.Members = []models.FamilyMember{*admin}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Named("family").Infow("family created", "family_id", family.ID, "user_id", userID)
	return family, nil
}

// activeFamilies returns a query over the active families the user belongs to.
func (s *familyService) activeFamilies(userID string) *gorm.DB {
	return s.db.Model(&models.Family{}).
		Joins("JOIN family_members ON family_members.family_id = families.id AND family_members.deleted_at IS NULL").
		Where("family_members.user_id = ? AND family_members.status = ? AND families.status = ?",
			userID, models.MemberStatusActive, models.FamilyStatusActive)
}

// GetUserFamilies lists the active families the user is an active member of.
func (s *familyService) GetUserFamilies(userID string) ([]models.Family, error) {
	var families []models.Family
	if err := s.activeFamilies(userID).Order("families.created_at").Find(&families).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return families, nil
}

// GetFamily returns a family with its active members.
func (s *familyService) GetFamily(userID, familyID string) (*models.Family, error) {
	if _, err := s.RequireMember(userID, familyID); err != nil {
		return nil, err
	}

	var family models.Family
	err := s.db.Preload("Members", "status = ?", models.MemberStatusActive).
		Where("id = ?", familyID).First(&family).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &family, nil
}

// AddMember adds an existing user, looked up by email, to the family. Only
// admins may add members. A user who left earlier is re-activated.
func (s *familyService) AddMember(actorID, familyID, email string, role models.MemberRole, nickname string) (*models.FamilyMember, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	if role != models.MemberRoleAdmin && role != models.MemberRoleMember {
		return nil, apperrors.ErrInvalidFamilyRole
	}
	if _, err := s.RequireAdmin(actorID, familyID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var member models.FamilyMember
	err := s.db.Where("family_id = ? AND user_id = ?", familyID, user.ID).First(&member).Error
	switch {
	case err == nil && member.Status == models.MemberStatusActive:
		return nil, apperrors.ErrAlreadyMember
	case err == nil:
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":    models.MemberStatusActive,
			"role":      role,
			"nickname":  nickname,
			"joined_at": now,
			"left_at":   nil,
		}
		if err := s.db.Model(&member).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member.Status = models.MemberStatusActive
		member.Role = role
		member.Nickname = nickname
		member.JoinedAt = now
		member.LeftAt = nil
		return &member, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	member = models.FamilyMember{
		FamilyID: familyID,
		UserID:   user.ID,
		Role:     role,
		Nickname: nickname,
		Status:   models.MemberStatusActive,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// LeaveFamily ends the user's membership. The last active admin cannot leave
// while other active members remain; a sole remaining member may leave.
func (s *familyService) LeaveFamily(userID, familyID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var member models.FamilyMember
		err := tx.Where("family_id = ? AND user_id = ? AND status = ?", familyID, userID, models.MemberStatusActive).
			First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFamilyMember
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if member.Role == models.MemberRoleAdmin {
			var admins, others int64
			base := tx.Model(&models.FamilyMember{}).
				Where("family_id = ? AND status = ? AND user_id <> ?", familyID, models.MemberStatusActive, userID)
			if err := base.Session(&gorm.Session{}).Where("role = ?", models.MemberRoleAdmin).Count(&admins).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := base.Session(&gorm.Session{}).Count(&others).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if admins == 0 && others > 0 {
				return apperrors.ErrLastAdmin
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&member).Updates(map[string]interface{}{
			"status":  models.MemberStatusLeft,
			"left_at": now,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ActiveFamilyIDs returns the IDs of the active families the user belongs to.
func (s *familyService) ActiveFamilyIDs(userID string) ([]string, error) {
	var ids []string
	if err := s.activeFamilies(userID).Pluck("families.id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// RequireMember returns the user's active membership in an active family.
func (s *familyService) RequireMember(userID, familyID string) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := s.db.Joins("JOIN families ON families.id = family_members.family_id AND families.deleted_at IS NULL").
		Where("family_members.family_id = ? AND family_members.user_id = ? AND family_members.status = ? AND families.status = ?",
			familyID, userID, models.MemberStatusActive, models.FamilyStatusActive).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFamilyMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// RequireAdmin is RequireMember restricted to admins.
func (s *familyService) RequireAdmin(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.RequireMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.MemberRoleAdmin {
		return nil, apperrors.ErrNotFamilyAdmin
	}
	return member, nil
}
