// Package aiusage gates AI-backed features behind an allowlist and a
// per-user daily quota.
package aiusage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/pkg/config"
)

var (
	ErrNotAllowed    = errors.New("ai features are not enabled for this account")
	ErrLimitExceeded = errors.New("daily ai usage limit reached")
)

type Service struct {
	DB           *gorm.DB
	DailyLimit   int
	allowEmails  map[string]struct{}
	allowUserIDs map[uint]struct{}
	Now          func() time.Time
}

func NewService(db *gorm.DB, cfg config.AIConfig) *Service {
	s := &Service{
		DB:           db,
		DailyLimit:   cfg.DailyLimit,
		allowEmails:  make(map[string]struct{}, len(cfg.AllowEmails)),
		allowUserIDs: make(map[uint]struct{}, len(cfg.AllowUserIDs)),
		Now:          time.Now,
	}
	for _, e := range cfg.AllowEmails {
		s.allowEmails[e] = struct{}{}
	}
	for _, id := range cfg.AllowUserIDs {
		s.allowUserIDs[id] = struct{}{}
	}
	return s
}

// Allowed reports whether the user may call AI features at all.
// An empty allowlist denies everyone.
func (s *Service) Allowed(userID uint, email string) bool {
	if _, ok := s.allowUserIDs[userID]; ok {
		return true
	}
	_, ok := s.allowEmails[email]
	return ok
}

// Consume records one use of an AI feature for today and enforces the
// daily limit. The increment and the check run in one transaction so
// concurrent calls cannot exceed the quota.
func (s *Service) Consume(userID uint, email string, kind model.AIUsageKind) (remaining int, err error) {
	if !s.Allowed(userID, email) {
		return 0, ErrNotAllowed
	}
	date := s.Now().UTC().Format("2006-01-02")

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		row := model.AIUsage{
			UserID: userID,
			Date:   date,
			Kind:   kind,
			Count:  1,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
		}).Create(&row).Error; err != nil {
			return err
		}

		var current model.AIUsage
		if err := tx.
			Where("user_id = ? AND date = ? AND kind = ?", userID, date, kind).
			First(&current).Error; err != nil {
			return err
		}
		if current.Count > s.DailyLimit {
			// Undo the increment so a later call can still succeed
			// once the limit resets.
			if err := tx.Model(&model.AIUsage{}).
				Where("user_id = ? AND date = ? AND kind = ?", userID, date, kind).
				Update("count", gorm.Expr("count - 1")).Error; err != nil {
				return err
			}
			return ErrLimitExceeded
		}
		remaining = s.DailyLimit - current.Count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Remaining returns how many uses are left today without consuming one.
func (s *Service) Remaining(userID uint, email string, kind model.AIUsageKind) (int, error) {
	if !s.Allowed(userID, email) {
		return 0, ErrNotAllowed
	}
	date := s.Now().UTC().Format("2006-01-02")

	var current model.AIUsage
	err := s.DB.
		Where("user_id = ? AND date = ? AND kind = ?", userID, date, kind).
		First(&current).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.DailyLimit, nil
		}
		return 0, err
	}
	left := s.DailyLimit - current.Count
	if left < 0 {
		left = 0
	}
	return left, nil
}
