package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/aiusage"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/breakdown"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
)

type BreakdownHandler struct {
	Generator  breakdown.Generator
	Usage      *aiusage.Service
	Tasks      *task.Service
	Workspaces *workspace.Service
}

func NewBreakdownHandler(gen breakdown.Generator, usage *aiusage.Service, tasks *task.Service, ws *workspace.Service) *BreakdownHandler {
	return &BreakdownHandler{Generator: gen, Usage: usage, Tasks: tasks, Workspaces: ws}
}

// Breakdown turns a goal into tasks and adds them to the caller's
// inbox. Gated by the AI allowlist and daily quota.
func (h *BreakdownHandler) Breakdown(c echo.Context) error {
	log := logger.FromContext(c)

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	_, email, _ := currentUser(c)

	var req struct {
		Goal string `json:"goal"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	// Reject malformed input before it costs quota.
	if strings.TrimSpace(req.Goal) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "goal is required"})
	}

	remaining, err := h.Usage.Consume(ctx.UserID, email, model.AIUsageBreakdown)
	if err != nil {
		return writeError(c, err)
	}

	steps, err := h.Generator.Generate(c.Request().Context(), req.Goal)
	if err != nil {
		if errors.Is(err, breakdown.ErrGoalRequired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "goal is required"})
		}
		log.Error("Breakdown generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "breakdown failed"})
	}

	created, err := h.Tasks.CreateBulk(ctx, steps, model.TaskSourceBreakdown)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Goal broken down into tasks",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Int("created", created))

	return c.JSON(http.StatusCreated, echo.Map{
		"tasks_created":   created,
		"titles":          steps,
		"usage_remaining": remaining,
	})
}
