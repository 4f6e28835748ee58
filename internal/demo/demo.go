// Package demo provides owner-only tooling to reset a workspace and
// load sample data. Disabled unless DEMO_TOOLS_ENABLED is set.
package demo

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

var ErrDisabled = errors.New("demo tools are disabled")

var sampleTitles = []string{
	"Review the quarterly plan",
	"Write the onboarding guide",
	"Triage open bug reports",
	"Prepare the demo script",
	"Clean up stale branches",
}

type Service struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Enabled bool
	Now     func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger, enabled bool) *Service {
	return &Service{DB: db, Log: log, Enabled: enabled, Now: time.Now}
}

// Reset wipes the workspace's tasks, activity, and weekly data, then
// seeds sample tasks assigned to the caller. Owner only.
func (s *Service) Reset(ctx *workspace.Context) (seeded int, err error) {
	if !s.Enabled {
		return 0, ErrDisabled
	}
	if !workspace.CanRunDemoTools(ctx.Role) {
		activity.LogBestEffort(s.DB, s.Log, activity.Record{
			WorkspaceID: ctx.WorkspaceID,
			ActorUserID: ctx.UserID,
			Kind:        model.ActivityForbidden,
			Message:     "Forbidden: reset demo data",
			Metadata:    map[string]interface{}{"action": "reset_demo"},
		})
		prometheus.RecordForbidden("reset_demo")
		return 0, workspace.ErrForbidden
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Hard deletes: soft-deleted weekly rows would keep holding
		// their unique (workspace, user, week) slots.
		for _, target := range []interface{}{
			&model.TaskActivity{},
			&model.WeeklyNote{},
			&model.WeeklyReport{},
		} {
			if err := tx.Unscoped().Where("workspace_id = ?", ctx.WorkspaceID).Delete(target).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().
			Where("workspace_id = ?", ctx.WorkspaceID).
			Delete(&model.Task{}).Error; err != nil {
			return err
		}

		now := s.Now()
		for i, title := range sampleTitles {
			t := model.Task{
				WorkspaceID:      ctx.WorkspaceID,
				CreatedByUserID:  ctx.UserID,
				AssignedToUserID: ctx.UserID,
				Title:            title,
				Status:           model.TaskStatusTodo,
				Source:           model.TaskSourceDemo,
			}
			// Mark the first two done so summaries have content.
			if i < 2 {
				done := now.Add(-time.Duration(i+1) * time.Hour)
				t.Status = model.TaskStatusDone
				t.CompletedAt = &done
			}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
