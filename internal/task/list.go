package task

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

// ListFilter narrows and orders the inbox listing.
type ListFilter struct {
	Query  string
	Status string // "all", "todo", "done"
	Sort   string // "todoFirst", "createdDesc", "completedDesc"
}

func (s *Service) scopedQuery(ctx *workspace.Context, f ListFilter) *gorm.DB {
	q := s.DB.Model(&model.Task{}).
		Where("workspace_id = ? AND assigned_to_user_id = ?", ctx.WorkspaceID, ctx.UserID)
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	switch f.Status {
	case "todo":
		q = q.Where("status = ?", model.TaskStatusTodo)
	case "done":
		q = q.Where("status = ?", model.TaskStatusDone)
	}
	return q
}

// List returns the caller's tasks in the requested order. "todoFirst"
// keeps open tasks (focused one on top) above completed ones.
// "completedDesc" pins tasks without a completion date to the end
// (NULLS LAST) instead of relying on the store's default null ordering.
func (s *Service) List(ctx *workspace.Context, f ListFilter) ([]model.Task, error) {
	var rows []model.Task

	switch f.Sort {
	case "createdDesc":
		err := s.scopedQuery(ctx, f).Order("created_at DESC, id DESC").Find(&rows).Error
		return rows, err
	case "completedDesc":
		err := s.scopedQuery(ctx, f).
			Order("completed_at DESC NULLS LAST").
			Order("created_at DESC, id DESC").
			Find(&rows).Error
		return rows, err
	}

	// todoFirst (default)
	if f.Status == "done" {
		err := s.scopedQuery(ctx, f).Order("created_at DESC, id DESC").Find(&rows).Error
		return rows, err
	}
	if f.Status == "todo" {
		err := s.scopedQuery(ctx, f).
			Order("focus_at DESC NULLS LAST").
			Order("created_at DESC, id DESC").
			Find(&rows).Error
		return rows, err
	}

	var todo, done []model.Task
	todoFilter := f
	todoFilter.Status = "todo"
	if err := s.scopedQuery(ctx, todoFilter).
		Order("focus_at DESC NULLS LAST").
		Order("created_at DESC, id DESC").
		Find(&todo).Error; err != nil {
		return nil, err
	}
	doneFilter := f
	doneFilter.Status = "done"
	if err := s.scopedQuery(ctx, doneFilter).
		Order("created_at DESC, id DESC").
		Find(&done).Error; err != nil {
		return nil, err
	}
	return append(todo, done...), nil
}

// Count returns how many tasks are assigned to the caller.
func (s *Service) Count(ctx *workspace.Context) (int64, error) {
	var n int64
	err := s.DB.Model(&model.Task{}).
		Where("workspace_id = ? AND assigned_to_user_id = ?", ctx.WorkspaceID, ctx.UserID).
		Count(&n).Error
	return n, err
}

// WeekSummary counts the caller's completed and open tasks for a week,
// feeding the weekly report.
type WeekSummary struct {
	Done int64
	Todo int64
}

func (s *Service) SummarizeWeek(ctx *workspace.Context, weekStart time.Time) (*WeekSummary, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)

	var sum WeekSummary
	if err := s.DB.Model(&model.Task{}).
		Where("workspace_id = ? AND assigned_to_user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			ctx.WorkspaceID, ctx.UserID, model.TaskStatusDone, weekStart, weekEnd).
		Count(&sum.Done).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&model.Task{}).
		Where("workspace_id = ? AND assigned_to_user_id = ? AND status = ?",
			ctx.WorkspaceID, ctx.UserID, model.TaskStatusTodo).
		Count(&sum.Todo).Error; err != nil {
		return nil, err
	}
	return &sum, nil
}

// WeekTitles lists the caller's completed titles inside the week and
// their currently open titles, for the weekly report body.
func (s *Service) WeekTitles(ctx *workspace.Context, weekStart time.Time) (done, todo []string, err error) {
	weekEnd := weekStart.AddDate(0, 0, 7)

	var doneRows []model.Task
	if err = s.DB.
		Where("workspace_id = ? AND assigned_to_user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			ctx.WorkspaceID, ctx.UserID, model.TaskStatusDone, weekStart, weekEnd).
		Order("completed_at ASC").
		Find(&doneRows).Error; err != nil {
		return nil, nil, err
	}
	var todoRows []model.Task
	if err = s.DB.
		Where("workspace_id = ? AND assigned_to_user_id = ? AND status = ?",
			ctx.WorkspaceID, ctx.UserID, model.TaskStatusTodo).
		Order("created_at ASC").
		Find(&todoRows).Error; err != nil {
		return nil, nil, err
	}
	for _, t := range doneRows {
		done = append(done, t.Title)
	}
	for _, t := range todoRows {
		todo = append(todo, t.Title)
	}
	return done, todo, nil
}
