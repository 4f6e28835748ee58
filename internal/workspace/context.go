package workspace

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

// DefaultWorkspaceName is used for the workspace created on first contact.
const DefaultWorkspaceName = "Personal workspace"

// Context is the resolved workspace scope a request operates in.
type Context struct {
	UserID        uint       `json:"user_id"`
	WorkspaceID   uint       `json:"workspace_id"`
	Role          model.Role `json:"role"`
	WorkspaceName string     `json:"workspace_name"`
}

// Resolve maps a user to their active workspace, creating a personal one
// for first-time users. Resolution order:
//  1. the user's default-workspace pointer, when a membership still exists
//  2. the earliest membership, which then becomes the new default
//  3. a freshly created "Personal workspace" with an owner membership
//     (workspace + membership + pointer update in one transaction)
func (s *Service) Resolve(userID uint) (*Context, error) {
	var user model.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if user.DefaultWorkspaceID != nil {
		var m model.WorkspaceMembership
		err := s.DB.Preload("Workspace").
			Where("workspace_id = ? AND user_id = ?", *user.DefaultWorkspaceID, userID).
			First(&m).Error
		if err == nil {
			return &Context{
				UserID:        userID,
				WorkspaceID:   m.WorkspaceID,
				Role:          m.Role,
				WorkspaceName: m.Workspace.Name,
			}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Stale pointer: fall through and repair it below.
	}

	var first model.WorkspaceMembership
	err := s.DB.Preload("Workspace").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		First(&first).Error
	if err == nil {
		if err := s.DB.Model(&model.User{}).Where("id = ?", userID).
			Update("default_workspace_id", first.WorkspaceID).Error; err != nil {
			return nil, err
		}
		return &Context{
			UserID:        userID,
			WorkspaceID:   first.WorkspaceID,
			Role:          first.Role,
			WorkspaceName: first.Workspace.Name,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// First-time user: personal workspace, owner membership and default
	// pointer must appear together or not at all.
	var ctx *Context
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		ws := model.Workspace{Name: DefaultWorkspaceName}
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		m := model.WorkspaceMembership{
			WorkspaceID: ws.ID,
			UserID:      userID,
			Role:        model.RoleOwner,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("default_workspace_id", ws.ID).Error; err != nil {
			return err
		}
		ctx = &Context{
			UserID:        userID,
			WorkspaceID:   ws.ID,
			Role:          model.RoleOwner,
			WorkspaceName: ws.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

// Confirm checks a claimed workspace scope against the stored
// membership and returns a context carrying the stored role, so role
// changes and removals take effect on the next request instead of at
// token expiry. A claim whose membership is gone falls back to Resolve.
func (s *Service) Confirm(userID, workspaceID uint) (*Context, error) {
	var m model.WorkspaceMembership
	err := s.DB.Preload("Workspace").
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.Resolve(userID)
		}
		return nil, err
	}

	return &Context{
		UserID:        userID,
		WorkspaceID:   m.WorkspaceID,
		Role:          m.Role,
		WorkspaceName: m.Workspace.Name,
	}, nil
}

// Switch moves the user's default-workspace pointer to another workspace
// they are a member of and returns the new context. A switch to a
// workspace without a membership is a denial, logged in the current scope.
func (s *Service) Switch(ctx *Context, targetWorkspaceID uint) (*Context, error) {
	var m model.WorkspaceMembership
	err := s.DB.Preload("Workspace").
		Where("workspace_id = ? AND user_id = ?", targetWorkspaceID, ctx.UserID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.deny(ctx.WorkspaceID, ctx.UserID, "switch_workspace",
				"Forbidden: switch workspace",
				map[string]interface{}{"target_workspace_id": targetWorkspaceID},
				ErrForbidden)
		}
		return nil, err
	}

	if err := s.DB.Model(&model.User{}).Where("id = ?", ctx.UserID).
		Update("default_workspace_id", targetWorkspaceID).Error; err != nil {
		return nil, err
	}

	return &Context{
		UserID:        ctx.UserID,
		WorkspaceID:   m.WorkspaceID,
		Role:          m.Role,
		WorkspaceName: m.Workspace.Name,
	}, nil
}

// Memberships lists all workspaces the user belongs to, earliest first.
func (s *Service) Memberships(userID uint) ([]model.WorkspaceMembership, error) {
	var rows []model.WorkspaceMembership
	err := s.DB.Preload("Workspace").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Rename changes the workspace name. Owner only.
func (s *Service) Rename(ctx *Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if !CanRenameWorkspace(ctx.Role) {
		return s.deny(ctx.WorkspaceID, ctx.UserID, "rename_workspace",
			"Forbidden: rename workspace",
			map[string]interface{}{"name": name}, ErrForbidden)
	}

	res := s.DB.Model(&model.Workspace{}).Where("id = ?", ctx.WorkspaceID).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityWorkspaceRenamed,
		Message:     "Workspace renamed",
		Metadata:    map[string]interface{}{"action": "rename_workspace", "name": name},
	})
	return nil
}
