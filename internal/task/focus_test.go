package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

func TestSetFocusKeepsSingleFocus(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(f.member, "First", model.TaskSourceInbox)
	require.NoError(t, err)
	b, err := f.svc.Create(f.member, "Second", model.TaskSourceInbox)
	require.NoError(t, err)

	_, err = f.svc.SetFocus(f.member, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetFocus(f.member, b.ID)
	require.NoError(t, err)

	// Only b carries the focus flag now.
	var focused []model.Task
	require.NoError(t, f.svc.DB.
		Where("workspace_id = ? AND assigned_to_user_id = ? AND focus_at IS NOT NULL",
			f.member.WorkspaceID, f.member.UserID).
		Find(&focused).Error)
	require.Len(t, focused, 1)
	assert.Equal(t, b.ID, focused[0].ID)

	current, err := f.svc.Focus(f.member, f.member.UserID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)
}

func TestSetFocusRejectsDoneTask(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.member, "Done already", model.TaskSourceInbox)
	require.NoError(t, err)
	_, err = f.svc.ToggleDone(f.member, created.ID)
	require.NoError(t, err)

	_, err = f.svc.SetFocus(f.member, created.ID)
	assert.ErrorIs(t, err, workspace.ErrNotFound)
}

func TestSetFocusPermissions(t *testing.T) {
	f := newFixture(t)
	ownerTask, err := f.svc.Create(f.owner, "Owner's", model.TaskSourceInbox)
	require.NoError(t, err)

	// A member cannot focus a task assigned to someone else.
	_, err = f.svc.SetFocus(f.member, ownerTask.ID)
	assert.ErrorIs(t, err, workspace.ErrForbidden)

	// An owner may focus any task; it stays scoped to the assignee.
	memberTask, err := f.svc.Create(f.member, "Member's", model.TaskSourceInbox)
	require.NoError(t, err)
	_, err = f.svc.SetFocus(f.owner, memberTask.ID)
	require.NoError(t, err)

	current, err := f.svc.Focus(f.member, f.member.UserID)
	require.NoError(t, err)
	assert.Equal(t, memberTask.ID, current.ID)
}

func TestClearFocus(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.member, "Focus me", model.TaskSourceInbox)
	require.NoError(t, err)
	_, err = f.svc.SetFocus(f.member, created.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearFocus(f.member))

	_, err = f.svc.Focus(f.member, f.member.UserID)
	assert.ErrorIs(t, err, workspace.ErrNotFound)
	assert.Equal(t, int64(1), activityCount(t, f.svc.DB, model.ActivityFocusCleared))

	// Clearing with no focus set is a no-op.
	require.NoError(t, f.svc.ClearFocus(f.member))
	assert.Equal(t, int64(1), activityCount(t, f.svc.DB, model.ActivityFocusCleared))
}
