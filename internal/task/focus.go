package task

import (
	"errors"

	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

// SetFocus marks one todo task as the assignee's current focus. All other
// focus flags for that assignee are cleared in the same transaction, so at
// most one todo task per (workspace, assignee) ever carries focusAt.
// Owners may focus any task; members only tasks assigned to them.
func (s *Service) SetFocus(ctx *workspace.Context, taskID uint) (*model.Task, error) {
	t, err := s.find(ctx.WorkspaceID, taskID)
	if err != nil {
		return nil, err
	}
	if ctx.Role != model.RoleOwner && t.AssignedToUserID != ctx.UserID {
		return nil, s.deny(ctx, &t.ID, "set_focus_task", "Forbidden: set focus")
	}

	now := s.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).
			Where("workspace_id = ? AND assigned_to_user_id = ?", ctx.WorkspaceID, t.AssignedToUserID).
			Update("focus_at", nil).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Task{}).
			Where("id = ? AND workspace_id = ? AND status = ?", t.ID, ctx.WorkspaceID, model.TaskStatusTodo).
			Update("focus_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Done or vanished since the read; nothing gains focus.
			return workspace.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.FocusAt = &now

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityFocusSet,
	})
	return t, nil
}

// ClearFocus drops the caller's focus flag. The previously focused task,
// if any, is recorded in the audit trail.
func (s *Service) ClearFocus(ctx *workspace.Context) error {
	current, err := s.Focus(ctx, ctx.UserID)
	if err != nil && !errors.Is(err, workspace.ErrNotFound) {
		return err
	}

	if err := s.DB.Model(&model.Task{}).
		Where("workspace_id = ? AND assigned_to_user_id = ?", ctx.WorkspaceID, ctx.UserID).
		Update("focus_at", nil).Error; err != nil {
		return err
	}

	if current != nil {
		activity.LogBestEffort(s.DB, s.Log, activity.Record{
			WorkspaceID: ctx.WorkspaceID,
			TaskID:      &current.ID,
			ActorUserID: ctx.UserID,
			Kind:        model.ActivityFocusCleared,
		})
	}
	return nil
}

// Focus returns the assignee's current focus task, or ErrNotFound.
func (s *Service) Focus(ctx *workspace.Context, assigneeUserID uint) (*model.Task, error) {
	var t model.Task
	err := s.DB.
		Where("workspace_id = ? AND assigned_to_user_id = ? AND status = ? AND focus_at IS NOT NULL",
			ctx.WorkspaceID, assigneeUserID, model.TaskStatusTodo).
		Order("focus_at DESC, created_at DESC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
