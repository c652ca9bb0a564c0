package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/notify"
	"famledger/internal/pagination"
)

// visibleToUser matches notifications addressed to the user, to one of the
// user's families, or to everyone.
const visibleToUser = "(user_id = ? OR (user_id IS NULL AND (family_id IS NULL OR family_id IN ?)))"

// notificationService persists notifications and hands each new one to the publisher.
type notificationService struct {
	db        *gorm.DB
	families  FamilyServicer
	publisher notify.Publisher
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB, families FamilyServicer, publisher notify.Publisher) NotificationServicer {
	if publisher == nil {
		publisher = notify.LogPublisher{}
	}
	return &notificationService{db: db, families: families, publisher: publisher}
}

// Create stores a notification and publishes it. A failed publish is logged;
// the stored row is the source of truth.
func (s *notificationService) Create(ctx context.Context, n *models.Notification) error {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "notification title and message are required")
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusUnread
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.publisher.Publish(ctx, notify.FromNotification(n)); err != nil {
		logger.Named("notify").Errorw("failed to publish notification",
			"notification_id", n.ID,
			"error", err,
		)
	}
	return nil
}

func (s *notificationService) visible(userID string) (*gorm.DB, error) {
	familyIDs, err := s.families.ActiveFamilyIDs(userID)
	if err != nil {
		return nil, err
	}
	return s.db.Model(&models.Notification{}).Where(visibleToUser, userID, familyIDs), nil
}

// GetUserNotifications lists the notifications a user can see, newest first,
// together with the number still unread.
func (s *notificationService) GetUserNotifications(userID string, page pagination.PageRequest, filter NotificationFilter) (*NotificationPage, error) {
	page.Defaults()

	base, err := s.visible(userID)
	if err != nil {
		return nil, err
	}

	var unread int64
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.NotificationStatusUnread).Count(&unread).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	listed := base.Session(&gorm.Session{})
	if filter.Status != nil {
		listed = listed.Where("status = ?", *filter.Status)
	}

	var totalItems int64
	if err := listed.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := listed.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &NotificationPage{
		PageResponse: pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems),
		UnreadCount:  unread,
	}, nil
}

// MarkRead marks one visible notification read.
func (s *notificationService) MarkRead(userID, notificationID string) error {
	base, err := s.visible(userID)
	if err != nil {
		return err
	}

	var n models.Notification
	if err := base.Where("id = ?", notificationID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if n.Status == models.NotificationStatusRead {
		return nil
	}

	if err := s.db.Model(&models.Notification{}).Where("id = ?", n.ID).
		Update("status", models.NotificationStatusRead).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MarkAllRead marks every visible unread notification read and returns how many changed.
func (s *notificationService) MarkAllRead(userID string) (int64, error) {
	base, err := s.visible(userID)
	if err != nil {
		return 0, err
	}

	res := base.Where("status = ?", models.NotificationStatusUnread).
		Update("status", models.NotificationStatusRead)
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}
