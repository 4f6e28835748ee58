package workspace

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/prometheus"
)

// Business-rule outcomes. Handlers translate these to HTTP statuses;
// anything else bubbling out of the service is an infrastructure failure.
var (
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrNameRequired   = errors.New("workspace name is required")
	ErrSelfRoleChange = fmt.Errorf("%w: own role cannot be changed", ErrForbidden)
	ErrLastOwner      = fmt.Errorf("%w: workspace must keep at least one owner", ErrForbidden)
)

// Service implements workspace context resolution, the membership
// lifecycle and invite handling on top of the shared gorm handle.
type Service struct {
	DB  *gorm.DB
	Log *zap.Logger

	// Now is injectable so invite expiry can be tested deterministically.
	Now func() time.Time

	Invites config.InviteConfig
}

func NewService(db *gorm.DB, log *zap.Logger, invites config.InviteConfig) *Service {
	if invites.TTL <= 0 {
		invites.TTL = 7 * 24 * time.Hour
	}
	if invites.DefaultMaxUses <= 0 {
		invites.DefaultMaxUses = 5
	}
	if invites.MaxUsesCap <= 0 {
		invites.MaxUsesCap = 50
	}
	return &Service{
		DB:      db,
		Log:     log,
		Now:     time.Now,
		Invites: invites,
	}
}

// deny records a permission denial (audit row + metric) and returns the
// sentinel to surface. The audit write never blocks the denial itself.
func (s *Service) deny(workspaceID, actorUserID uint, action, message string, meta map[string]interface{}, sentinel error) error {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["action"] = action
	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: workspaceID,
		ActorUserID: actorUserID,
		Kind:        model.ActivityForbidden,
		Message:     message,
		Metadata:    meta,
	})
	prometheus.RecordForbidden(action)
	return sentinel
}

// lockForUpdate adds a row lock on dialects that support it. SQLite (used
// by the test suite) serializes writers on its own, so the clause is
// skipped there rather than producing a syntax error.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
