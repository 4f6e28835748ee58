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

type InviteHandler struct {
	Workspaces *workspace.Service
}

func NewInviteHandler(ws *workspace.Service) *InviteHandler {
	return &InviteHandler{Workspaces: ws}
}

// CreateInvite issues a new invite link for the active workspace.
// Owner only; the raw token appears in this response and nowhere else.
func (h *InviteHandler) CreateInvite(c echo.Context) error {
	log := logger.FromContext(c)

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		Role    string `json:"role"`
		MaxUses int    `json:"max_uses"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	role := model.RoleMember
	if req.Role != "" {
		if req.Role != string(model.RoleOwner) && req.Role != string(model.RoleMember) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be owner or member"})
		}
		role = model.ParseRole(req.Role)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	created, err := h.Workspaces.CreateInvite(ctx, role, req.MaxUses)
	if err != nil {
		prometheus.RecordInviteOperation("create", "error")
		return writeError(c, err)
	}
	prometheus.RecordInviteOperation("create", "ok")

	log.Info("Invite created",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Uint("invite_id", created.Invite.ID),
		zap.Int("max_uses", created.Invite.MaxUses))

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         created.Invite.ID,
		"token":      created.Token,
		"role":       created.Invite.Role,
		"max_uses":   created.Invite.MaxUses,
		"expires_at": created.Invite.ExpiresAt,
	})
}

// ListInvites returns the workspace's invites with their current
// status. Owner only.
func (h *InviteHandler) ListInvites(c echo.Context) error {
	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	invites, err := h.Workspaces.ListInvites(ctx)
	if err != nil {
		return writeError(c, err)
	}

	now := time.Now()
	out := make([]echo.Map, 0, len(invites))
	for _, inv := range invites {
		out = append(out, echo.Map{
			"id":         inv.ID,
			"role":       inv.Role,
			"status":     inv.StatusAt(now),
			"used_count": inv.UsedCount,
			"max_uses":   inv.MaxUses,
			"expires_at": inv.ExpiresAt,
			"created_at": inv.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"invites": out})
}

// RevokeInvite disables an invite so it can no longer be redeemed.
func (h *InviteHandler) RevokeInvite(c echo.Context) error {
	log := logger.FromContext(c)

	ctx, err := workspaceContext(c, h.Workspaces)
	if err != nil {
		return writeError(c, err)
	}

	inviteID, err := strconv.ParseUint(c.Param("inviteId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invite id"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.Workspaces.RevokeInvite(ctx, uint(inviteID)); err != nil {
		prometheus.RecordInviteOperation("revoke", "error")
		return writeError(c, err)
	}
	prometheus.RecordInviteOperation("revoke", "ok")

	log.Info("Invite revoked",
		zap.Uint("workspace_id", ctx.WorkspaceID),
		zap.Uint("invite_id", uint(inviteID)))

	return c.JSON(http.StatusOK, echo.Map{"message": "invite revoked"})
}

// RedeemInvite accepts an invite token for the authenticated user. The
// response always carries a terminal status; non-accepted outcomes are
// still HTTP 200 so clients can render them directly.
func (h *InviteHandler) RedeemInvite(c echo.Context) error {
	log := logger.FromContext(c)

	userID, email, ok := currentUser(c)
	if !ok {
		prometheus.RecordAuthError("unauthorized_invite_redemption")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result, err := h.Workspaces.RedeemInvite(userID, req.Token)
	if err != nil {
		prometheus.RecordInviteOperation("redeem", "error")
		return writeError(c, err)
	}
	prometheus.RecordInviteOperation("redeem", string(result.Status))

	resp := echo.Map{"status": result.Status}
	if result.Accepted() {
		resp["workspace"] = echo.Map{
			"id":   result.WorkspaceID,
			"name": result.WorkspaceName,
			"role": result.Role,
		}

		// Reissue the token so the client lands in the joined workspace.
		token, err := jwtutil.GenerateTokenWithWorkspace(email, userID, &result.WorkspaceID, result.WorkspaceName, result.Role)
		if err != nil {
			log.Error("Failed to generate token after redemption", zap.Error(err))
		} else {
			resp["token"] = token
		}

		log.Info("Invite redeemed",
			zap.Uint("user_id", userID),
			zap.Uint("workspace_id", result.WorkspaceID),
			zap.String("status", string(result.Status)))
	}

	return c.JSON(http.StatusOK, resp)
}
