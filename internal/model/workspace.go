package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace is the tenant boundary. Every task, invite and membership is
// scoped by WorkspaceID.
type Workspace struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Memberships []WorkspaceMembership `json:"memberships,omitempty"`
	Invites     []WorkspaceInvite     `json:"invites,omitempty"`
}

// WorkspaceMembership associates a user with a workspace at a role.
// A user may belong to many workspaces; (workspace, user) is unique.
type WorkspaceMembership struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"not null;uniqueIndex:uq_workspace_user"`
	UserID      uint           `json:"user_id" gorm:"not null;uniqueIndex:uq_workspace_user;index"`
	Role        Role           `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}

// WorkspaceInvite is a single- or multi-use credential granting membership.
// Only the SHA-256 hash of the bearer token is stored; the raw token is
// shown to the creator once and never persisted.
type WorkspaceInvite struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID     uint           `json:"workspace_id" gorm:"not null;index"`
	TokenHash       string         `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Role            Role           `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	MaxUses         int            `json:"max_uses" gorm:"not null;default:5"`
	UsedCount       int            `json:"used_count" gorm:"not null;default:0"`
	ExpiresAt       time.Time      `json:"expires_at" gorm:"index;not null"`
	RevokedAt       *time.Time     `json:"revoked_at,omitempty"`
	CreatedByUserID uint           `json:"created_by_user_id" gorm:"not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}

// StatusAt derives the invite lifecycle state at the given instant.
// Expiry is a read-time property; it never mutates the row.
func (i *WorkspaceInvite) StatusAt(now time.Time) InviteStatus {
	switch {
	case i.RevokedAt != nil && i.UsedCount >= i.MaxUses:
		return InviteStatusUsedUp
	case i.RevokedAt != nil:
		return InviteStatusRevoked
	case now.After(i.ExpiresAt):
		return InviteStatusExpired
	case i.UsedCount >= i.MaxUses:
		return InviteStatusUsedUp
	default:
		return InviteStatusActive
	}
}
