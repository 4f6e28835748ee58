package workspace

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Workspace{},
		&model.WorkspaceMembership{},
		&model.WorkspaceInvite{},
		&model.Task{},
		&model.TaskActivity{},
	))

	return NewService(db, zap.NewNop(), config.InviteConfig{})
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := model.User{Email: email, Name: email, Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// ownerWithWorkspace resolves a fresh user, which creates their personal
// workspace with an owner membership.
func ownerWithWorkspace(t *testing.T, s *Service, email string) *Context {
	t.Helper()
	u := createUser(t, s.DB, email)
	ctx, err := s.Resolve(u.ID)
	require.NoError(t, err)
	return ctx
}

// addMember joins a user directly to a workspace at the given role.
func addMember(t *testing.T, s *Service, workspaceID uint, email string, role model.Role) *Context {
	t.Helper()
	u := createUser(t, s.DB, email)
	require.NoError(t, s.DB.Create(&model.WorkspaceMembership{
		WorkspaceID: workspaceID,
		UserID:      u.ID,
		Role:        role,
	}).Error)
	var ws model.Workspace
	require.NoError(t, s.DB.First(&ws, workspaceID).Error)
	return &Context{UserID: u.ID, WorkspaceID: workspaceID, Role: role, WorkspaceName: ws.Name}
}

func countActivities(t *testing.T, db *gorm.DB, workspaceID uint, kind model.ActivityKind) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.TaskActivity{}).
		Where("workspace_id = ? AND kind = ?", workspaceID, kind).
		Count(&n).Error)
	return n
}
