package task

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

// ErrTitleRequired rejects empty or whitespace-only titles.
var ErrTitleRequired = errors.New("task title is required")

// Service wraps task mutations. Every query is workspace-scoped: a task id
// outside the caller's workspace behaves exactly like a missing one.
type Service struct {
	DB  *gorm.DB
	Log *zap.Logger
	Now func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{DB: db, Log: log, Now: time.Now}
}

func (s *Service) deny(ctx *workspace.Context, taskID *uint, action, message string) error {
	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      taskID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityForbidden,
		Message:     message,
		Metadata:    map[string]interface{}{"action": action},
	})
	prometheus.RecordForbidden(action)
	return workspace.ErrForbidden
}

func (s *Service) find(workspaceID, taskID uint) (*model.Task, error) {
	var t model.Task
	err := s.DB.Where("id = ? AND workspace_id = ?", taskID, workspaceID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Get returns one task within the caller's workspace.
func (s *Service) Get(ctx *workspace.Context, taskID uint) (*model.Task, error) {
	return s.find(ctx.WorkspaceID, taskID)
}

// Create adds a task assigned to its creator.
func (s *Service) Create(ctx *workspace.Context, title string, source model.TaskSource) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if source == "" {
		source = model.TaskSourceInbox
	}

	t := model.Task{
		WorkspaceID:      ctx.WorkspaceID,
		CreatedByUserID:  ctx.UserID,
		AssignedToUserID: ctx.UserID,
		Title:            title,
		Status:           model.TaskStatusTodo,
		Source:           source,
	}
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, err
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityCreated,
		Metadata:    map[string]interface{}{"source": source},
	})
	return &t, nil
}

// CreateBulk inserts several tasks at once (breakdown import). Blank lines
// are dropped; per-task activity is intentionally not written.
func (s *Service) CreateBulk(ctx *workspace.Context, titles []string, source model.TaskSource) (int, error) {
	rows := make([]model.Task, 0, len(titles))
	for _, raw := range titles {
		title := strings.TrimSpace(raw)
		if title == "" {
			continue
		}
		rows = append(rows, model.Task{
			WorkspaceID:      ctx.WorkspaceID,
			CreatedByUserID:  ctx.UserID,
			AssignedToUserID: ctx.UserID,
			Title:            title,
			Status:           model.TaskStatusTodo,
			Source:           source,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.DB.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ToggleDone flips todo/done. Members may only toggle tasks assigned to
// them. Completing a task stamps completedAt and clears the focus flag;
// reopening clears completedAt.
func (s *Service) ToggleDone(ctx *workspace.Context, taskID uint) (*model.Task, error) {
	t, err := s.find(ctx.WorkspaceID, taskID)
	if err != nil {
		return nil, err
	}
	if !workspace.CanToggleTask(ctx.Role, ctx.UserID, t.AssignedToUserID) {
		return nil, s.deny(ctx, &t.ID, "toggle_task_done", "Forbidden: toggle task")
	}

	updates := map[string]interface{}{}
	if t.Status == model.TaskStatusDone {
		t.Status = model.TaskStatusTodo
		t.CompletedAt = nil
		updates["status"] = t.Status
		updates["completed_at"] = nil
	} else {
		now := s.Now()
		t.Status = model.TaskStatusDone
		t.CompletedAt = &now
		t.FocusAt = nil
		updates["status"] = t.Status
		updates["completed_at"] = &now
		// A completed task is no longer the next step.
		updates["focus_at"] = nil
	}
	if err := s.DB.Model(&model.Task{}).Where("id = ? AND workspace_id = ?", t.ID, ctx.WorkspaceID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityStatusToggled,
		Metadata:    map[string]interface{}{"status": t.Status},
	})
	return t, nil
}

// UpdateTitle renames a task. Members may edit tasks they created or are
// assigned to.
func (s *Service) UpdateTitle(ctx *workspace.Context, taskID uint, title string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	t, err := s.find(ctx.WorkspaceID, taskID)
	if err != nil {
		return nil, err
	}
	if !workspace.CanEditTaskTitle(ctx.Role, ctx.UserID, t.CreatedByUserID, t.AssignedToUserID) {
		return nil, s.deny(ctx, &t.ID, "update_task_title", "Forbidden: update task title")
	}

	res := s.DB.Model(&model.Task{}).
		Where("id = ? AND workspace_id = ?", t.ID, ctx.WorkspaceID).
		Update("title", title)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, workspace.ErrNotFound
	}
	t.Title = title

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityTitleUpdated,
	})
	return t, nil
}

// Assign hands a task to another workspace member. Owner only; the target
// must hold a membership in the same workspace.
func (s *Service) Assign(ctx *workspace.Context, taskID, assigneeUserID uint) (*model.Task, error) {
	t, err := s.find(ctx.WorkspaceID, taskID)
	if err != nil {
		return nil, err
	}
	if !workspace.CanAssignTask(ctx.Role) {
		return nil, s.deny(ctx, &t.ID, "assign_task", "Forbidden: assign task")
	}

	var memberCount int64
	if err := s.DB.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND user_id = ?", ctx.WorkspaceID, assigneeUserID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}
	if memberCount == 0 {
		return nil, s.deny(ctx, &t.ID, "assign_task", "Forbidden: assignee is not a member")
	}

	if err := s.DB.Model(&model.Task{}).
		Where("id = ? AND workspace_id = ?", t.ID, ctx.WorkspaceID).
		Update("assigned_to_user_id", assigneeUserID).Error; err != nil {
		return nil, err
	}
	t.AssignedToUserID = assigneeUserID

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityAssigned,
		Metadata:    map[string]interface{}{"assigned_to_user_id": assigneeUserID},
	})
	return t, nil
}

// Delete removes a task. Members may only delete tasks they created. The
// audit row is written first, best-effort, so a missing activity record
// never blocks the delete.
func (s *Service) Delete(ctx *workspace.Context, taskID uint) error {
	t, err := s.find(ctx.WorkspaceID, taskID)
	if err != nil {
		return err
	}
	if !workspace.CanDeleteTask(ctx.Role, ctx.UserID, t.CreatedByUserID) {
		return s.deny(ctx, &t.ID, "delete_task", "Forbidden: delete task")
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		TaskID:      &t.ID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityDeleted,
	})

	res := s.DB.Where("id = ? AND workspace_id = ?", t.ID, ctx.WorkspaceID).Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workspace.ErrNotFound
	}
	return nil
}
