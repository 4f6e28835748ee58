package activity

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

// Record describes one audit event to append.
type Record struct {
	WorkspaceID uint
	TaskID      *uint
	ActorUserID uint
	Kind        model.ActivityKind
	Message     string
	Metadata    map[string]interface{}
}

// Log appends an immutable audit row. Pass a transaction handle to make the
// write part of the surrounding consistency unit (invite redemption does).
func Log(db *gorm.DB, rec Record) error {
	var meta datatypes.JSON
	if rec.Metadata != nil {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		meta = datatypes.JSON(raw)
	}

	row := model.TaskActivity{
		WorkspaceID: rec.WorkspaceID,
		TaskID:      rec.TaskID,
		ActorUserID: rec.ActorUserID,
		Kind:        rec.Kind,
		Message:     rec.Message,
		Metadata:    meta,
	}
	return db.Create(&row).Error
}

// LogBestEffort appends an audit row without letting a failure disturb the
// primary mutation. The error is reported to the logger and dropped.
func LogBestEffort(db *gorm.DB, log *zap.Logger, rec Record) {
	if err := Log(db, rec); err != nil {
		log.Warn("Failed to write audit record",
			zap.String("kind", string(rec.Kind)),
			zap.Uint("workspace_id", rec.WorkspaceID),
			zap.Error(err))
	}
}
