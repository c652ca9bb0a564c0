package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationStatus is the read state of a notification
type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// Notification is a message for one user, every member of a family, or
// everyone when both FamilyID and UserID are nil. It is append-only: no
// soft deletes and no updated_at besides the read flag.
type Notification struct {
	ID        string             `gorm:"type:uuid;primaryKey" json:"id"`
	FamilyID  *string            `gorm:"type:uuid;index" json:"family_id,omitempty"`
	UserID    *string            `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Title     string             `gorm:"size:100;not null;index" json:"title"`
	Message   string             `gorm:"type:text;not null" json:"message"`
	Type      string             `gorm:"size:50" json:"type,omitempty"`
	Status    NotificationStatus `gorm:"size:50;not null;default:'unread'" json:"status"`
	CreatedAt time.Time          `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = NewID()
	}
	return nil
}
