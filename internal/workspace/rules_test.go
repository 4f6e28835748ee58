package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

func TestPermissionRules(t *testing.T) {
	const actor, other = 1, 2

	assert.True(t, CanCreateTask(model.RoleMember))
	assert.True(t, CanCreateTask(model.RoleOwner))

	assert.True(t, CanToggleTask(model.RoleOwner, actor, other))
	assert.True(t, CanToggleTask(model.RoleMember, actor, actor))
	assert.False(t, CanToggleTask(model.RoleMember, actor, other))

	assert.True(t, CanEditTaskTitle(model.RoleMember, actor, actor, other))
	assert.True(t, CanEditTaskTitle(model.RoleMember, actor, other, actor))
	assert.False(t, CanEditTaskTitle(model.RoleMember, actor, other, other))
	assert.True(t, CanEditTaskTitle(model.RoleOwner, actor, other, other))

	assert.True(t, CanDeleteTask(model.RoleMember, actor, actor))
	assert.False(t, CanDeleteTask(model.RoleMember, actor, other))
	assert.True(t, CanDeleteTask(model.RoleOwner, actor, other))

	for _, ownerOnly := range []func(model.Role) bool{
		CanAssignTask, CanManageInvites, CanRemoveMember, CanRenameWorkspace, CanRunDemoTools,
	} {
		assert.True(t, ownerOnly(model.RoleOwner))
		assert.False(t, ownerOnly(model.RoleMember))
	}

	assert.True(t, CanChangeMemberRole(model.RoleOwner, actor, other))
	assert.False(t, CanChangeMemberRole(model.RoleOwner, actor, actor))
	assert.False(t, CanChangeMemberRole(model.RoleMember, actor, other))
}
