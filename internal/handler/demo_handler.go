package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/demo"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

type DemoHandler struct {
	Demo       *demo.Service
	Workspaces *workspace.Service
}

func NewDemoHandler(d *demo.Service, ws *workspace.Service) *DemoHandler {
	return &DemoHandler{Demo: d, Workspaces: ws}
}

// ResetDemo wipes the active workspace and seeds sample data. Owner
// only, and hidden entirely unless demo tools are enabled.
func (h *DemoHandler) ResetDemo(c echo.Context) error {
	log := logger.FromContext(c)

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	seeded, err := h.Demo.Reset(ctx)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Demo workspace reset",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Int("seeded", seeded))

	return c.JSON(http.StatusOK, echo.Map{"seeded": seeded})
}
