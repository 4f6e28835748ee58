package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

type ActivityHandler struct {
	DB         *gorm.DB
	Workspaces *workspace.Service
}

func NewActivityHandler(db *gorm.DB, ws *workspace.Service) *ActivityHandler {
	return &ActivityHandler{DB: db, Workspaces: ws}
}

func activityJSON(rows []model.TaskActivity) []echo.Map {
	return lo.Map(rows, func(a model.TaskActivity, _ int) echo.Map {
		out := echo.Map{
			"id":         a.ID,
			"kind":       a.Kind,
			"message":    a.Message,
			"actor_id":   a.ActorUserID,
			"actor_name": a.Actor.Name,
			"created_at": a.CreatedAt,
		}
		if a.TaskID != nil {
			out["task_id"] = *a.TaskID
		}
		if len(a.Metadata) > 0 {
			out["metadata"] = a.Metadata
		}
		return out
	})
}

// WorkspaceActivity returns the recent audit feed for the active
// workspace, optionally filtered by kind.
func (h *ActivityHandler) WorkspaceActivity(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	kind := model.ActivityKind(c.QueryParam("kind"))

	rows, err := activity.ListForWorkspace(h.DB, ctx.WorkspaceID, kind, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": activityJSON(rows)})
}
