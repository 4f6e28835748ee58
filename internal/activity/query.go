package activity

import (
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ListForTask returns the newest activity rows for one task, newest first.
func ListForTask(db *gorm.DB, workspaceID, taskID uint, limit int) ([]model.TaskActivity, error) {
	var rows []model.TaskActivity
	err := db.
		Preload("Actor").
		Where("workspace_id = ? AND task_id = ?", workspaceID, taskID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50)).
		Find(&rows).Error
	return rows, err
}

// ListForWorkspace returns recent workspace activity, optionally filtered by kind.
func ListForWorkspace(db *gorm.DB, workspaceID uint, kind model.ActivityKind, limit int) ([]model.TaskActivity, error) {
	q := db.
		Preload("Actor").
		Preload("Task").
		Where("workspace_id = ?", workspaceID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var rows []model.TaskActivity
	err := q.Order("created_at DESC").Limit(clampLimit(limit, 20)).Find(&rows).Error
	return rows, err
}
