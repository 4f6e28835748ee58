package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/jwtutil"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/logger"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

type WorkspaceHandler struct {
	Workspaces *workspace.Service
}

func NewWorkspaceHandler(ws *workspace.Service) *WorkspaceHandler {
	return &WorkspaceHandler{Workspaces: ws}
}

// GetWorkspace returns the caller's active workspace.
func (h *WorkspaceHandler) GetWorkspace(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":   ctx.WorkspaceID,
		"name": ctx.WorkspaceName,
		"role": ctx.Role,
	})
}

// ListWorkspaces returns every workspace the caller belongs to.
func (h *WorkspaceHandler) ListWorkspaces(c echo.Context) error {
	userID, _, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	memberships, err := h.Workspaces.Memberships(userID)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]echo.Map, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, echo.Map{
			"id":   m.WorkspaceID,
			"name": m.Workspace.Name,
			"role": m.Role,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"workspaces": out})
}

// SwitchWorkspace moves the caller to another workspace they belong to
// and issues a fresh token carrying the new context.
func (h *WorkspaceHandler) SwitchWorkspace(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("switch")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		WorkspaceID uint `json:"workspace_id"`
	}
	if err := c.Bind(&req); err != nil || req.WorkspaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace_id is required"})
	}

	next, err := h.Workspaces.Switch(ctx, req.WorkspaceID)
	if err != nil {
		return writeError(c, err)
	}

	email, _ := c.Get("email").(string)
	token, err := jwtutil.GenerateTokenWithWorkspace(email, next.UserID, &next.WorkspaceID, next.WorkspaceName, next.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Workspace switched",
		zap.Uint("user_id", next.UserID),
		zap.Uint("workspace_id", next.WorkspaceID))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"workspace": echo.Map{
			"id":   next.WorkspaceID,
			"name": next.WorkspaceName,
			"role": next.Role,
		},
	})
}

// RenameWorkspace updates the active workspace's name. Owner only.
func (h *WorkspaceHandler) RenameWorkspace(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("rename")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.Workspaces.Rename(ctx, req.Name); err != nil {
		return writeError(c, err)
	}

	log.Info("Workspace renamed",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.String("name", req.Name))

	return c.JSON(http.StatusOK, echo.Map{
		"id":   ctx.WorkspaceID,
		"name": req.Name,
	})
}

// ListMembers returns the membership roster of the active workspace.
func (h *WorkspaceHandler) ListMembers(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	members, err := h.Workspaces.ListMembers(ctx)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]echo.Map, 0, len(members))
	for _, m := range members {
		out = append(out, echo.Map{
			"user_id":   m.UserID,
			"email":     m.User.Email,
			"name":      m.User.Name,
			"role":      m.Role,
			"joined_at": m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out})
}

// UpdateMemberRole changes another member's role. Owner only; the last
// owner cannot be demoted.
func (h *WorkspaceHandler) UpdateMemberRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("update_member_role")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role != string(model.RoleOwner) && req.Role != string(model.RoleMember) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be owner or member"})
	}
	role := model.ParseRole(req.Role)

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.Workspaces.UpdateMemberRole(ctx, uint(targetID), role); err != nil {
		return writeError(c, err)
	}

	log.Info("Member role updated",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Uint("target_user_id", uint(targetID)),
		zap.String("role", string(role)))

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uint(targetID),
		"role":    role,
	})
}

// RemoveMember removes a member from the active workspace. Owner only.
func (h *WorkspaceHandler) RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("remove_member")

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.Workspaces.RemoveMember(ctx, uint(targetID)); err != nil {
		return writeError(c, err)
	}

	log.Info("Member removed",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Uint("target_user_id", uint(targetID)))

	return c.JSON(http.StatusOK, echo.Map{"message": "member removed"})
}
