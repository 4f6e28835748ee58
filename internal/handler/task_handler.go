package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

type TaskHandler struct {
	Tasks      *task.Service
	Workspaces *workspace.Service
}

func NewTaskHandler(tasks *task.Service, ws *workspace.Service) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Workspaces: ws}
}

func taskJSON(t *model.Task) echo.Map {
	return echo.Map{
		"id":           t.ID,
		"title":        t.Title,
		"status":       t.Status,
		"source":       t.Source,
		"assigned_to":  t.AssignedToUserID,
		"created_by":   t.CreatedByUserID,
		"completed_at": t.CompletedAt,
		"focus_at":     t.FocusAt,
		"created_at":   t.CreatedAt,
	}
}

// ListTasks returns the caller's tasks in the active workspace.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	f := task.ListFilter{
		Query:  c.QueryParam("q"),
		Status: c.QueryParam("status"),
		Sort:   c.QueryParam("sort"),
	}
	rows, err := h.Tasks.List(ctx, f)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tasks": lo.Map(rows, func(t model.Task, _ int) echo.Map {
			return taskJSON(&t)
		}),
	})
}

// CreateTask adds a task to the caller's inbox.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTaskOperation("create")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	t, err := h.Tasks.Create(ctx, req.Title, model.TaskSourceInbox)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Task created",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Uint("task_id", t.ID))

	return c.JSON(http.StatusCreated, taskJSON(t))
}

func (h *TaskHandler) taskID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return uint(id), nil
}

// ToggleTask flips a task between todo and done.
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	prometheus.RecordTaskOperation("toggle")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	t, err := h.Tasks.ToggleDone(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, taskJSON(t))
}

// UpdateTaskTitle renames a task.
func (h *TaskHandler) UpdateTaskTitle(c echo.Context) error {
	prometheus.RecordTaskOperation("update_title")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	t, err := h.Tasks.UpdateTitle(ctx, id, req.Title)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, taskJSON(t))
}

// AssignTask hands a task to another member of the workspace.
func (h *TaskHandler) AssignTask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTaskOperation("assign")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}

	var req struct {
		AssigneeUserID uint `json:"assignee_user_id"`
	}
	if err := c.Bind(&req); err != nil || req.AssigneeUserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assignee_user_id is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	t, err := h.Tasks.Assign(ctx, id, req.AssigneeUserID)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Task assigned",
		zap.Uint("task_id", t.ID),
		zap.Uint("assignee_user_id", req.AssigneeUserID))

	return c.JSON(http.StatusOK, taskJSON(t))
}

// DeleteTask removes a task.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	prometheus.RecordTaskOperation("delete")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.Tasks.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted"})
}

// GetFocus returns the caller's current focus task, if any.
func (h *TaskHandler) GetFocus(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	t, err := h.Tasks.Focus(ctx, ctx.UserID)
	if err != nil {
		// No focus task is an empty result, not an error.
		if errors.Is(err, workspace.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"focus": nil})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"focus": taskJSON(t)})
}

// SetFocus marks a task as the single focus task for its assignee.
func (h *TaskHandler) SetFocus(c echo.Context) error {
	prometheus.RecordTaskOperation("set_focus")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	t, err := h.Tasks.SetFocus(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"focus": taskJSON(t)})
}

// ClearFocus clears the caller's focus task.
func (h *TaskHandler) ClearFocus(c echo.Context) error {
	prometheus.RecordTaskOperation("clear_focus")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.Tasks.ClearFocus(ctx); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"focus": nil})
}

// TaskActivity returns the audit trail for one task.
func (h *TaskHandler) TaskActivity(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	id, err := h.taskID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	rows, err := activity.ListForTask(h.Tasks.DB, ctx.WorkspaceID, id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": activityJSON(rows)})
}
