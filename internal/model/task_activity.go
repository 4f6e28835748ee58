package model

import (
	"time"

	"gorm.io/datatypes"
)

// TaskActivity is an immutable audit event. Rows are only ever created;
// there is no soft delete and no update path.
type TaskActivity struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"not null;index"`
	TaskID      *uint          `json:"task_id,omitempty" gorm:"index"`
	ActorUserID uint           `json:"actor_user_id" gorm:"not null;index"`
	Kind        ActivityKind   `json:"kind" gorm:"type:varchar(50);not null;index"`
	Message     string         `json:"message,omitempty" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`

	Actor User  `json:"actor,omitempty" gorm:"foreignKey:ActorUserID"`
	Task  *Task `json:"task,omitempty" gorm:"foreignKey:TaskID"`
}
