package workspace

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
)

func TestLockForUpdateByDialect(t *testing.T) {
	// Dry-run against the postgres dialector: the redemption read must
	// carry the row lock there.
	pg, err := gorm.Open(postgres.Open("host=localhost user=app dbname=app"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	var inv model.WorkspaceInvite
	stmt := lockForUpdate(pg).Where("id = ?", 1).Find(&inv).Statement
	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")

	// SQLite serializes writers itself and rejects the clause.
	s := newTestService(t)
	stmt = lockForUpdate(s.DB.Session(&gorm.Session{DryRun: true})).Where("id = ?", 1).Find(&inv).Statement
	assert.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestRedeemInviteConcurrentAttempts(t *testing.T) {
	// A file-backed database so the racing goroutines hit real
	// transaction isolation instead of a shared in-memory handle.
	dsn := filepath.Join(t.TempDir(), "invites.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
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
	s := NewService(db, zap.NewNop(), config.InviteConfig{})

	owner := ownerWithWorkspace(t, s, "owner@example.com")
	created, err := s.CreateInvite(owner, model.RoleMember, 3)
	require.NoError(t, err)

	const attempts = 10
	userIDs := make([]uint, attempts)
	for i := range userIDs {
		userIDs[i] = createUser(t, s.DB, fmt.Sprintf("user%d@example.com", i)).ID
	}

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			res, err := s.RedeemInvite(id, created.Token)
			if err != nil {
				// A racing writer may be refused by sqlite; that is a
				// retryable failure, never an extra admission.
				return
			}
			if res.Status == RedeemAccepted {
				accepted.Add(1)
			}
		}(id)
	}
	wg.Wait()

	var fresh model.WorkspaceInvite
	require.NoError(t, s.DB.First(&fresh, created.Invite.ID).Error)
	assert.LessOrEqual(t, fresh.UsedCount, fresh.MaxUses)
	assert.Equal(t, fresh.UsedCount, int(accepted.Load()))

	var members int64
	require.NoError(t, s.DB.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND user_id <> ?", owner.WorkspaceID, owner.UserID).
		Count(&members).Error)
	assert.Equal(t, int64(fresh.UsedCount), members)
}
