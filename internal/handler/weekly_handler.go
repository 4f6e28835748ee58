package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/weekly"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/slack"
)

type WeeklyHandler struct {
	Weekly     *weekly.Service
	Tasks      *task.Service
	Workspaces *workspace.Service
	Slack      *slack.Client
}

func NewWeeklyHandler(w *weekly.Service, tasks *task.Service, ws *workspace.Service, sl *slack.Client) *WeeklyHandler {
	return &WeeklyHandler{Weekly: w, Tasks: tasks, Workspaces: ws, Slack: sl}
}

// weekStartParam parses ?week=2026-08-24, defaulting to the current week.
func weekStartParam(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("week")
	if raw == "" {
		return weekly.WeekStart(time.Now()), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "week must be YYYY-MM-DD")
	}
	return weekly.WeekStart(t), nil
}

// GetWeek returns the week's summary, note, and stored report.
func (h *WeeklyHandler) GetWeek(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	weekStart, err := weekStartParam(c)
	if err != nil {
		return err
	}

	sum, err := h.Tasks.SummarizeWeek(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}
	note, err := h.Weekly.Note(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}
	report, err := h.Weekly.Report(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"week_start": weekStart.Format("2006-01-02"),
		"done":       sum.Done,
		"todo":       sum.Todo,
		"note":       note,
		"report":     report,
	})
}

// SetNote stores the caller's free-form note for the week.
func (h *WeeklyHandler) SetNote(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	weekStart, err := weekStartParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.Weekly.SetNote(ctx, weekStart, req.Note); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"note": req.Note})
}

// GenerateReport builds the week's report from the task summary and
// the stored note, saves it, and returns the text.
func (h *WeeklyHandler) GenerateReport(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	weekStart, err := weekStartParam(c)
	if err != nil {
		return err
	}

	sum, err := h.Tasks.SummarizeWeek(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}
	doneTitles, todoTitles, err := h.Tasks.WeekTitles(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}
	note, err := h.Weekly.Note(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}

	text := weekly.BuildReport(weekly.ReportInput{
		WorkspaceName: ctx.WorkspaceName,
		WeekStart:     weekStart,
		Summary:       *sum,
		DoneTitles:    doneTitles,
		TodoTitles:    todoTitles,
		Note:          note,
	})
	if err := h.Weekly.SetReport(ctx, weekStart, text); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"report": text})
}

// SaveReport stores a hand-edited report text for the week.
func (h *WeeklyHandler) SaveReport(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	weekStart, err := weekStartParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Report string `json:"report"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.Weekly.SetReport(ctx, weekStart, req.Report); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"report": req.Report})
}

// ShareReport posts the week's stored report to the configured Slack
// webhook.
func (h *WeeklyHandler) ShareReport(c echo.Context) error {
	log := logger.FromContext(c)

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	weekStart, err := weekStartParam(c)
	if err != nil {
		return err
	}

	if !h.Slack.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sharing is not configured"})
	}

	report, err := h.Weekly.Report(ctx, weekStart)
	if err != nil {
		return writeError(c, err)
	}
	if report == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no report to share for this week"})
	}

	if err := h.Slack.Post(c.Request().Context(), report); err != nil {
		log.Error("Failed to post report to slack", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to share report"})
	}

	log.Info("Weekly report shared",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.String("week_start", weekStart.Format("2006-01-02")))

	return c.JSON(http.StatusOK, echo.Map{"message": "report shared"})
}
