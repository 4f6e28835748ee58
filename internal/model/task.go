package model

import (
	"time"

	"gorm.io/gorm"
)

// Task belongs to a workspace and carries two independent user relations:
// the creator and the assignee. A new task is assigned to its creator.
type Task struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID      uint           `json:"workspace_id" gorm:"not null;index"`
	CreatedByUserID  uint           `json:"created_by_user_id" gorm:"not null;index"`
	AssignedToUserID uint           `json:"assigned_to_user_id" gorm:"not null;index"`
	Title            string         `json:"title" gorm:"type:varchar(200);not null"`
	Status           TaskStatus     `json:"status" gorm:"type:varchar(20);not null;default:'todo'"`
	Source           TaskSource     `json:"source" gorm:"type:varchar(20);not null;default:'inbox'"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	FocusAt          *time.Time     `json:"focus_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
