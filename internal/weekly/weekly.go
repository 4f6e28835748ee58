package weekly

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/workspace"
)

const (
	NoteMaxChars   = 500
	ReportMaxChars = 2000
)

var (
	ErrNoteTooLong   = errors.New("weekly note is too long")
	ErrReportTooLong = errors.New("weekly report is too long")
)

// Service stores weekly notes and reports, one row per
// (workspace, user, weekStart).
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// WeekStart normalizes any instant to the Monday 00:00 UTC of its week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := (int(t.Weekday()) + 6) % 7 // Monday = 0
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, -day)
}

// Note returns the stored note text, or "" when none exists.
func (s *Service) Note(ctx *workspace.Context, weekStart time.Time) (string, error) {
	var row model.WeeklyNote
	err := s.DB.
		Where("workspace_id = ? AND user_id = ? AND week_start = ?", ctx.WorkspaceID, ctx.UserID, weekStart).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Note, nil
}

// SetNote upserts the note for the week.
func (s *Service) SetNote(ctx *workspace.Context, weekStart time.Time, note string) error {
	if len([]rune(note)) > NoteMaxChars {
		return ErrNoteTooLong
	}
	row := model.WeeklyNote{
		WorkspaceID: ctx.WorkspaceID,
		UserID:      ctx.UserID,
		WeekStart:   weekStart,
		Note:        note,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
	}).Create(&row).Error
}

// Report returns the stored report text, or "" when none exists.
func (s *Service) Report(ctx *workspace.Context, weekStart time.Time) (string, error) {
	var row model.WeeklyReport
	err := s.DB.
		Where("workspace_id = ? AND user_id = ? AND week_start = ?", ctx.WorkspaceID, ctx.UserID, weekStart).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Text, nil
}

// SetReport upserts the report text for the week.
func (s *Service) SetReport(ctx *workspace.Context, weekStart time.Time, text string) error {
	if len([]rune(text)) > ReportMaxChars {
		return ErrReportTooLong
	}
	row := model.WeeklyReport{
		WorkspaceID: ctx.WorkspaceID,
		UserID:      ctx.UserID,
		WeekStart:   weekStart,
		Text:        text,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(&row).Error
}
