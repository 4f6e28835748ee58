package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/aiusage"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/demo"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/weekly"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

// currentUser pulls the authenticated user out of the echo context
// (set by AuthMiddleware).
func currentUser(c echo.Context) (userID uint, email string, ok bool) {
	userID, ok = c.Get("user_id").(uint)
	if !ok {
		return 0, "", false
	}
	email, _ = c.Get("email").(string)
	return userID, email, true
}

// workspaceContext resolves the caller's workspace scope. The token's
// workspace claim only selects the workspace; the membership and role
// are confirmed against the store on every request, so a role change or
// removal takes effect immediately rather than at token expiry.
// Requests issued before the user had a workspace claim fall back to
// resolving one.
func workspaceContext(c echo.Context, ws *workspace.Service) (*workspace.Context, error) {
	userID, _, ok := currentUser(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	workspaceID, ok := c.Get("workspace_id").(uint)
	if !ok {
		return ws.Resolve(userID)
	}
	return ws.Confirm(userID, workspaceID)
}

// writeError maps service errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, workspace.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, workspace.ErrNameRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, task.ErrTitleRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	case errors.Is(err, weekly.ErrNoteTooLong), errors.Is(err, weekly.ErrReportTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, aiusage.ErrNotAllowed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, aiusage.ErrLimitExceeded):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	case errors.Is(err, demo.ErrDisabled):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	log.Error("Request failed", zap.Error(err))
	prometheus.RecordAuthError("internal_error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
