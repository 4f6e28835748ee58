package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/activity"
	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

// RedeemStatus is the terminal outcome of a redemption attempt. These are
// user-visible states, not errors.
type RedeemStatus string

const (
	RedeemAccepted      RedeemStatus = "accepted"
	RedeemAlreadyMember RedeemStatus = "already_member"
	RedeemInvalid       RedeemStatus = "invalid"
	RedeemExpired       RedeemStatus = "expired"
	RedeemUsedUp        RedeemStatus = "used_up"
)

// RedeemResult reports what happened to a redemption attempt.
type RedeemResult struct {
	Status        RedeemStatus `json:"status"`
	WorkspaceID   uint         `json:"workspace_id,omitempty"`
	WorkspaceName string       `json:"workspace_name,omitempty"`
	Role          model.Role   `json:"role,omitempty"`
}

// Accepted reports whether the redeemer ended up with a membership,
// whether created now or already present.
func (r *RedeemResult) Accepted() bool {
	return r.Status == RedeemAccepted || r.Status == RedeemAlreadyMember
}

// CreatedInvite pairs the stored invite with its raw bearer token. The
// token exists only in this value; callers show it once and drop it.
type CreatedInvite struct {
	Invite model.WorkspaceInvite
	Token  string
}

// CreateInvite issues a new invite for the context workspace. Owner only.
// maxUses <= 0 selects the configured default; the result is clamped to
// [1, cap]. Only the SHA-256 hash of the token is persisted.
func (s *Service) CreateInvite(ctx *Context, role model.Role, maxUses int) (*CreatedInvite, error) {
	if !CanManageInvites(ctx.Role) {
		return nil, s.deny(ctx.WorkspaceID, ctx.UserID, "create_workspace_invite",
			"Forbidden: create invite",
			map[string]interface{}{"role": role, "max_uses": maxUses},
			ErrForbidden)
	}

	if maxUses <= 0 {
		maxUses = s.Invites.DefaultMaxUses
	}
	if maxUses < 1 {
		maxUses = 1
	}
	if maxUses > s.Invites.MaxUsesCap {
		maxUses = s.Invites.MaxUsesCap
	}

	token, err := NewInviteToken()
	if err != nil {
		return nil, err
	}

	invite := model.WorkspaceInvite{
		WorkspaceID:     ctx.WorkspaceID,
		TokenHash:       HashInviteToken(token),
		Role:            model.ParseRole(string(role)),
		MaxUses:         maxUses,
		UsedCount:       0,
		ExpiresAt:       s.Now().Add(s.Invites.TTL),
		CreatedByUserID: ctx.UserID,
	}
	if err := s.DB.Create(&invite).Error; err != nil {
		return nil, err
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityInviteCreated,
		Message:     fmt.Sprintf("Invite created (role=%s, maxUses=%d)", invite.Role, invite.MaxUses),
		Metadata: map[string]interface{}{
			"action":    "create_workspace_invite",
			"invite_id": invite.ID,
			"role":      invite.Role,
			"max_uses":  invite.MaxUses,
		},
	})

	return &CreatedInvite{Invite: invite, Token: token}, nil
}

// ListInvites returns the workspace's invites, newest first. Owner only.
func (s *Service) ListInvites(ctx *Context) ([]model.WorkspaceInvite, error) {
	if !CanManageInvites(ctx.Role) {
		return nil, s.deny(ctx.WorkspaceID, ctx.UserID, "list_workspace_invites",
			"Forbidden: list invites", nil, ErrForbidden)
	}

	var rows []model.WorkspaceInvite
	err := s.DB.Where("workspace_id = ?", ctx.WorkspaceID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// RevokeInvite marks a still-active invite revoked. Owner only. A zero
// row count means the invite does not exist in this workspace or is
// already terminal; both collapse to not-found.
func (s *Service) RevokeInvite(ctx *Context, inviteID uint) error {
	if !CanManageInvites(ctx.Role) {
		return s.deny(ctx.WorkspaceID, ctx.UserID, "revoke_workspace_invite",
			"Forbidden: revoke invite",
			map[string]interface{}{"invite_id": inviteID},
			ErrForbidden)
	}

	res := s.DB.Model(&model.WorkspaceInvite{}).
		Where("id = ? AND workspace_id = ? AND revoked_at IS NULL", inviteID, ctx.WorkspaceID).
		Update("revoked_at", s.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	activity.LogBestEffort(s.DB, s.Log, activity.Record{
		WorkspaceID: ctx.WorkspaceID,
		ActorUserID: ctx.UserID,
		Kind:        model.ActivityInviteRevoked,
		Message:     fmt.Sprintf("Invite revoked (id=%d)", inviteID),
		Metadata:    map[string]interface{}{"action": "revoke_workspace_invite", "invite_id": inviteID},
	})
	return nil
}

// RedeemInvite exchanges a raw bearer token for a membership. Concurrent
// redemptions of the same token serialize on a row lock; all state checks
// are repeated under that lock, and every audit write shares the
// membership transaction.
func (s *Service) RedeemInvite(userID uint, rawToken string) (*RedeemResult, error) {
	hash := HashInviteToken(strings.TrimSpace(rawToken))

	// Fast path: resolve terminal states without taking the lock.
	var invite model.WorkspaceInvite
	err := s.DB.Preload("Workspace").Where("token_hash = ?", hash).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RedeemResult{Status: RedeemInvalid}, nil
		}
		return nil, err
	}
	if res := redeemRejection(&invite, s.nowStatus(&invite)); res != nil {
		return res, nil
	}

	var result *RedeemResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var locked model.WorkspaceInvite
		if err := lockForUpdate(tx).Where("id = ?", invite.ID).First(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = &RedeemResult{Status: RedeemInvalid}
				return nil
			}
			return err
		}

		// Re-check under the lock: the invite may have been revoked,
		// expired or exhausted since the unlocked read.
		if res := redeemRejection(&locked, locked.StatusAt(s.Now())); res != nil {
			result = res
			return nil
		}

		var existing model.WorkspaceMembership
		err := tx.Where("workspace_id = ? AND user_id = ?", locked.WorkspaceID, userID).
			First(&existing).Error
		if err == nil {
			// Idempotent re-acceptance: no new membership, no count change.
			result = &RedeemResult{
				Status:        RedeemAlreadyMember,
				WorkspaceID:   locked.WorkspaceID,
				WorkspaceName: invite.Workspace.Name,
				Role:          existing.Role,
			}
			return s.adoptDefaultWorkspace(tx, userID, locked.WorkspaceID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		membership := model.WorkspaceMembership{
			WorkspaceID: locked.WorkspaceID,
			UserID:      userID,
			Role:        locked.Role,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if isUniqueViolation(err) {
				// Another redemption already created this membership.
				result = &RedeemResult{
					Status:        RedeemAlreadyMember,
					WorkspaceID:   locked.WorkspaceID,
					WorkspaceName: invite.Workspace.Name,
					Role:          locked.Role,
				}
				return s.adoptDefaultWorkspace(tx, userID, locked.WorkspaceID)
			}
			return err
		}

		locked.UsedCount++
		if err := tx.Model(&model.WorkspaceInvite{}).Where("id = ?", locked.ID).
			Update("used_count", locked.UsedCount).Error; err != nil {
			return err
		}

		// These audit writes are part of the redemption's consistency
		// unit, so a failure rolls back the membership as well.
		taskless := []activity.Record{
			{
				WorkspaceID: locked.WorkspaceID,
				ActorUserID: userID,
				Kind:        model.ActivityInviteAccepted,
				Message:     fmt.Sprintf("Invite accepted (role=%s)", locked.Role),
				Metadata:    map[string]interface{}{"action": "accept_workspace_invite", "invite_id": locked.ID, "role": locked.Role},
			},
			{
				WorkspaceID: locked.WorkspaceID,
				ActorUserID: userID,
				Kind:        model.ActivityMemberJoined,
				Message:     fmt.Sprintf("Member joined (role=%s)", locked.Role),
				Metadata:    map[string]interface{}{"action": "workspace_member_joined", "invite_id": locked.ID, "role": locked.Role},
			},
			{
				WorkspaceID: locked.WorkspaceID,
				ActorUserID: userID,
				Kind:        model.ActivityInviteUsed,
				Message:     fmt.Sprintf("Invite used (%d/%d)", locked.UsedCount, locked.MaxUses),
				Metadata:    map[string]interface{}{"action": "workspace_invite_used", "invite_id": locked.ID, "used_count": locked.UsedCount, "max_uses": locked.MaxUses},
			},
		}
		for _, rec := range taskless {
			if err := activity.Log(tx, rec); err != nil {
				return err
			}
		}

		if locked.UsedCount >= locked.MaxUses {
			// Auto revoke when used up, in the same transaction.
			if err := tx.Model(&model.WorkspaceInvite{}).
				Where("id = ? AND revoked_at IS NULL", locked.ID).
				Update("revoked_at", s.Now()).Error; err != nil {
				return err
			}
			if err := activity.Log(tx, activity.Record{
				WorkspaceID: locked.WorkspaceID,
				ActorUserID: userID,
				Kind:        model.ActivityInviteUsedUp,
				Message:     "Invite used up",
				Metadata:    map[string]interface{}{"action": "workspace_invite_used_up", "invite_id": locked.ID, "used_count": locked.UsedCount, "max_uses": locked.MaxUses},
			}); err != nil {
				return err
			}
			if err := activity.Log(tx, activity.Record{
				WorkspaceID: locked.WorkspaceID,
				ActorUserID: userID,
				Kind:        model.ActivityInviteRevoked,
				Message:     "Invite auto-revoked (used up)",
				Metadata:    map[string]interface{}{"action": "workspace_invite_auto_revoked", "invite_id": locked.ID, "reason": "used_up"},
			}); err != nil {
				return err
			}
		}

		if err := s.adoptDefaultWorkspace(tx, userID, locked.WorkspaceID); err != nil {
			return err
		}

		result = &RedeemResult{
			Status:        RedeemAccepted,
			WorkspaceID:   locked.WorkspaceID,
			WorkspaceName: invite.Workspace.Name,
			Role:          locked.Role,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) nowStatus(invite *model.WorkspaceInvite) model.InviteStatus {
	return invite.StatusAt(s.Now())
}

// redeemRejection maps a terminal invite state to a redemption result, or
// nil when the invite is still redeemable.
func redeemRejection(invite *model.WorkspaceInvite, status model.InviteStatus) *RedeemResult {
	switch status {
	case model.InviteStatusUsedUp:
		return &RedeemResult{Status: RedeemUsedUp, WorkspaceID: invite.WorkspaceID}
	case model.InviteStatusRevoked:
		return &RedeemResult{Status: RedeemInvalid}
	case model.InviteStatusExpired:
		return &RedeemResult{Status: RedeemExpired, WorkspaceID: invite.WorkspaceID}
	default:
		return nil
	}
}

// adoptDefaultWorkspace points a user with no default workspace at the
// one just joined.
func (s *Service) adoptDefaultWorkspace(tx *gorm.DB, userID, workspaceID uint) error {
	var user model.User
	if err := tx.Select("id", "default_workspace_id").First(&user, userID).Error; err != nil {
		return err
	}
	if user.DefaultWorkspaceID != nil {
		return nil
	}
	return tx.Model(&model.User{}).Where("id = ?", userID).
		Update("default_workspace_id", workspaceID).Error
}

// isUniqueViolation recognizes unique-constraint failures both through
// gorm's translated error and the raw postgres error code.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
