package models

import "time"

// FamilyStatus represents the lifecycle state of a family
type FamilyStatus string

const (
	FamilyStatusActive  FamilyStatus = "active"
	FamilyStatusDeleted FamilyStatus = "deleted"
)

// MemberRole is a member's role inside a family
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// MemberStatus tracks whether a membership is still in effect
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	MemberStatusLeft   MemberStatus = "left"
)

// Family is the tenant boundary that owns budgets, ledger entries and custom categories.
type Family struct {
	Base
	Name        string       `gorm:"size:100;not null" json:"name"`
	Description string       `json:"description"`
	CreatorID   string       `gorm:"type:uuid;not null" json:"creator_id"`
	Status      FamilyStatus `gorm:"size:50;not null;default:'active'" json:"status"`

	Members []FamilyMember `gorm:"foreignKey:FamilyID" json:"members,omitempty"`
}

// FamilyMember joins a user to a family.
type FamilyMember struct {
	Base
	FamilyID string       `gorm:"type:uuid;not null;index" json:"family_id"`
	UserID   string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Role     MemberRole   `gorm:"size:50;not null;default:'member'" json:"role"`
	Nickname string       `gorm:"size:50" json:"nickname"`
	Status   MemberStatus `gorm:"size:50;not null;default:'active'" json:"status"`
	JoinedAt time.Time    `gorm:"not null" json:"joined_at"`
	LeftAt   *time.Time   `json:"left_at,omitempty"`
}
