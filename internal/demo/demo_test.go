package demo

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Task{},
		&model.TaskActivity{},
		&model.WeeklyNote{},
		&model.WeeklyReport{},
	))
	return db
}

func TestResetDisabled(t *testing.T) {
	s := NewService(newTestDB(t), zap.NewNop(), false)
	ctx := &workspace.Context{UserID: 1, WorkspaceID: 1, Role: model.RoleOwner}

	_, err := s.Reset(ctx)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestResetOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, zap.NewNop(), true)
	ctx := &workspace.Context{UserID: 1, WorkspaceID: 1, Role: model.RoleMember}

	_, err := s.Reset(ctx)
	assert.ErrorIs(t, err, workspace.ErrForbidden)

	// The denial itself is audited, like every other owner-only action.
	var rows []model.TaskActivity
	require.NoError(t, db.
		Where("workspace_id = ? AND kind = ?", 1, model.ActivityForbidden).
		Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(1), rows[0].ActorUserID)
	assert.JSONEq(t, `{"action": "reset_demo"}`, string(rows[0].Metadata))
}

func TestResetWipesAndSeeds(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, zap.NewNop(), true)
	ctx := &workspace.Context{UserID: 1, WorkspaceID: 1, Role: model.RoleOwner}

	// Pre-existing data in this workspace, plus a task elsewhere.
	require.NoError(t, db.Create(&model.Task{
		WorkspaceID: 1, CreatedByUserID: 1, AssignedToUserID: 1,
		Title: "old", Status: model.TaskStatusTodo, Source: model.TaskSourceInbox,
	}).Error)
	require.NoError(t, db.Create(&model.Task{
		WorkspaceID: 2, CreatedByUserID: 2, AssignedToUserID: 2,
		Title: "foreign", Status: model.TaskStatusTodo, Source: model.TaskSourceInbox,
	}).Error)

	seeded, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(sampleTitles), seeded)

	var mine, foreign int64
	require.NoError(t, db.Model(&model.Task{}).Where("workspace_id = ?", 1).Count(&mine).Error)
	require.NoError(t, db.Model(&model.Task{}).Where("workspace_id = ?", 2).Count(&foreign).Error)
	assert.Equal(t, int64(len(sampleTitles)), mine)
	assert.Equal(t, int64(1), foreign)

	// A couple of seeds are completed for summary demos.
	var done int64
	require.NoError(t, db.Model(&model.Task{}).
		Where("workspace_id = ? AND status = ?", 1, model.TaskStatusDone).
		Count(&done).Error)
	assert.Equal(t, int64(2), done)
}
