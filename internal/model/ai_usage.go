package model

import (
	"time"
)

// AIUsageKind distinguishes the AI features that consume daily quota.
type AIUsageKind string

const (
	AIUsageBreakdown AIUsageKind = "breakdown"
	AIUsageWeekly    AIUsageKind = "weekly"
)

// AIUsage counts successful AI calls per user, UTC day and kind.
// Date is a "2006-01-02" key so the unique index stays timezone-stable.
type AIUsage struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    uint        `json:"user_id" gorm:"not null;uniqueIndex:uq_usage_day"`
	Date      string      `json:"date" gorm:"type:varchar(10);not null;uniqueIndex:uq_usage_day"`
	Kind      AIUsageKind `json:"kind" gorm:"type:varchar(20);not null;uniqueIndex:uq_usage_day"`
	Count     int         `json:"count" gorm:"not null;default:0"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
