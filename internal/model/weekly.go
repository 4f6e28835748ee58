package model

import (
	"time"

	"gorm.io/gorm"
)

// WeeklyNote holds a user's freeform note for one week in one workspace.
type WeeklyNote struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"not null;uniqueIndex:uq_note_week"`
	UserID      uint           `json:"user_id" gorm:"not null;uniqueIndex:uq_note_week"`
	WeekStart   time.Time      `json:"week_start" gorm:"not null;uniqueIndex:uq_note_week"`
	Note        string         `json:"note" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// WeeklyReport holds the generated or hand-edited report text for one week.
type WeeklyReport struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"not null;uniqueIndex:uq_report_week"`
	UserID      uint           `json:"user_id" gorm:"not null;uniqueIndex:uq_report_week"`
	WeekStart   time.Time      `json:"week_start" gorm:"not null;uniqueIndex:uq_report_week"`
	Text        string         `json:"text" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
