package workspace

import (
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

// Stateless permission predicates. Owners can do everything except change
// their own role; members act only on tasks they created or are assigned.

// CanCreateTask: any member of the workspace may create tasks.
func CanCreateTask(role model.Role) bool {
	return role == model.RoleOwner || role == model.RoleMember
}

// CanToggleTask: owners always; members only on tasks assigned to them.
func CanToggleTask(role model.Role, actorUserID, assigneeUserID uint) bool {
	if role == model.RoleOwner {
		return true
	}
	return actorUserID == assigneeUserID
}

// CanEditTaskTitle: owners always; members as creator or assignee.
func CanEditTaskTitle(role model.Role, actorUserID, creatorUserID, assigneeUserID uint) bool {
	if role == model.RoleOwner {
		return true
	}
	return actorUserID == creatorUserID || actorUserID == assigneeUserID
}

// CanDeleteTask: owners always; members only on tasks they created.
func CanDeleteTask(role model.Role, actorUserID, creatorUserID uint) bool {
	if role == model.RoleOwner {
		return true
	}
	return actorUserID == creatorUserID
}

// CanAssignTask: owner only.
func CanAssignTask(role model.Role) bool {
	return role == model.RoleOwner
}

// CanManageInvites covers both creating and revoking invites. Owner only.
func CanManageInvites(role model.Role) bool {
	return role == model.RoleOwner
}

// CanChangeMemberRole: owner only, and never on oneself. The self check
// applies to every role so an owner cannot accidentally lock themselves out.
func CanChangeMemberRole(role model.Role, actorUserID, targetUserID uint) bool {
	if actorUserID == targetUserID {
		return false
	}
	return role == model.RoleOwner
}

// CanRemoveMember: owner only.
func CanRemoveMember(role model.Role) bool {
	return role == model.RoleOwner
}

// CanRenameWorkspace: owner only.
func CanRenameWorkspace(role model.Role) bool {
	return role == model.RoleOwner
}

// CanRunDemoTools: owner only.
func CanRunDemoTools(role model.Role) bool {
	return role == model.RoleOwner
}
