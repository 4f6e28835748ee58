package workspace

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

// ListMembers returns the workspace's memberships with users, oldest first.
func (s *Service) ListMembers(ctx *Context) ([]model.WorkspaceMembership, error) {
	var rows []model.WorkspaceMembership
	err := s.DB.Preload("User").
		Where("workspace_id = ?", ctx.WorkspaceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *Service) countOwners(tx *gorm.DB, workspaceID uint) (int64, error) {
	var n int64
	err := tx.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND role = ?", workspaceID, model.RoleOwner).
		Count(&n).Error
	return n, err
}

// UpdateMemberRole changes another member's role. Owner only; changing
// one's own role is always denied, and demoting the last owner is denied
// so the workspace never ends up ownerless.
func (s *Service) UpdateMemberRole(ctx *Context, targetUserID uint, nextRole model.Role) error {
	nextRole = model.ParseRole(string(nextRole))

	if ctx.UserID == targetUserID {
		return s.deny(ctx.WorkspaceID, ctx.UserID, "update_workspace_member_role",
			"Forbidden: change own role",
			map[string]interface{}{"target_user_id": targetUserID, "next_role": nextRole, "reason": "self_change"},
			ErrSelfRoleChange)
	}
	if !CanChangeMemberRole(ctx.Role, ctx.UserID, targetUserID) {
		return s.deny(ctx.WorkspaceID, ctx.UserID, "update_workspace_member_role",
			"Forbidden: update member role",
			map[string]interface{}{"target_user_id": targetUserID, "next_role": nextRole},
			ErrForbidden)
	}

	var membership model.WorkspaceMembership
	err := s.DB.Where("workspace_id = ? AND user_id = ?", ctx.WorkspaceID, targetUserID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if membership.Role == model.RoleOwner && nextRole != model.RoleOwner {
		owners, err := s.countOwners(s.DB, ctx.WorkspaceID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return s.deny(ctx.WorkspaceID, ctx.UserID, "update_workspace_member_role",
				"Forbidden: demote last owner",
				map[string]interface{}{"target_user_id": targetUserID, "next_role": nextRole, "reason": "last_owner"},
				ErrLastOwner)
		}
	}

	if err := s.DB.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND user_id = ?", ctx.WorkspaceID, targetUserID).
		Update("role", nextRole).Error; err != nil {
		return err
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityMemberRoleUpdated,
		Message:     fmt.Sprintf("Member role updated (userId=%d, role=%s)", targetUserID, nextRole),
		Metadata:    map[string]interface{}{"action": "update_workspace_member_role", "target_user_id": targetUserID, "next_role": nextRole},
	})
	return nil
}

// RemoveMember deletes a membership. Owner only; removing the last owner
// is denied. If the removed user's default pointer referenced this
// workspace it is repointed to their earliest remaining membership, or
// cleared when none is left.
func (s *Service) RemoveMember(ctx *Context, targetUserID uint) error {
	if !CanRemoveMember(ctx.Role) {
		return s.deny(ctx.WorkspaceID, ctx.UserID, "remove_workspace_member",
			"Forbidden: remove member",
			map[string]interface{}{"target_user_id": targetUserID},
			ErrForbidden)
	}

	var membership model.WorkspaceMembership
	err := s.DB.Where("workspace_id = ? AND user_id = ?", ctx.WorkspaceID, targetUserID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if membership.Role == model.RoleOwner {
		owners, err := s.countOwners(s.DB, ctx.WorkspaceID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return s.deny(ctx.WorkspaceID, ctx.UserID, "remove_workspace_member",
				"Forbidden: remove last owner",
				map[string]interface{}{"target_user_id": targetUserID, "reason": "last_owner"},
				ErrLastOwner)
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Hard delete: a soft-deleted row would still hold the
		// (workspace, user) unique slot and block a later rejoin.
		res := tx.Unscoped().Where("workspace_id = ? AND user_id = ?", ctx.WorkspaceID, targetUserID).
			Delete(&model.WorkspaceMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		// Repoint the removed user's default workspace if it was this one.
		var user model.User
		if err := tx.Select("id", "default_workspace_id").First(&user, targetUserID).Error; err != nil {
			return err
		}
		if user.DefaultWorkspaceID == nil || *user.DefaultWorkspaceID != ctx.WorkspaceID {
			return nil
		}
		var next model.WorkspaceMembership
		err := tx.Where("user_id = ?", targetUserID).
			Order("created_at ASC, id ASC").
			First(&next).Error
		switch {
		case err == nil:
			return tx.Model(&model.User{}).Where("id = ?", targetUserID).
				Update("default_workspace_id", next.WorkspaceID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Model(&model.User{}).Where("id = ?", targetUserID).
				Update("default_workspace_id", nil).Error
		default:
			return err
		}
	})
	if err != nil {
		return err
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityMemberRemoved,
		Message:     fmt.Sprintf("Member removed (userId=%d)", targetUserID),
		Metadata:    map[string]interface{}{"action": "remove_workspace_member", "target_user_id": targetUserID},
	})
	return nil
}

// IsMember reports whether the user belongs to the workspace.
func (s *Service) IsMember(workspaceID, userID uint) (bool, error) {
	var n int64
	err := s.DB.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&n).Error
	return n > 0, err
}
