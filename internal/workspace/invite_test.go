package workspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/model"
)

func TestCreateInviteOwnerOnly(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	member := addMember(t, s, owner.WorkspaceID, "member@example.com", model.RoleMember)

	_, err := s.CreateInvite(member, model.RoleMember, 0)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityForbidden))

	created, err := s.CreateInvite(owner, model.RoleMember, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, created.Invite.MaxUses)
	assert.Len(t, created.Token, 32)
	assert.Equal(t, HashInviteToken(created.Token), created.Invite.TokenHash)
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityInviteCreated))
}

func TestCreateInviteClampsMaxUses(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")

	over, err := s.CreateInvite(owner, model.RoleMember, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, over.Invite.MaxUses)

	one, err := s.CreateInvite(owner, model.RoleMember, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, one.Invite.MaxUses)
}

func TestRedeemInviteRoundTrip(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	require.NoError(t, s.Rename(owner, "Team HQ"))
	joiner := createUser(t, s.DB, "joiner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 3)
	require.NoError(t, err)

	res, err := s.RedeemInvite(joiner.ID, created.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemAccepted, res.Status)
	assert.Equal(t, owner.WorkspaceID, res.WorkspaceID)
	assert.Equal(t, "Team HQ", res.WorkspaceName)
	assert.Equal(t, model.RoleMember, res.Role)

	ok, err := s.IsMember(owner.WorkspaceID, joiner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// The joiner had no default workspace, so the joined one is adopted.
	var fresh model.User
	require.NoError(t, s.DB.First(&fresh, joiner.ID).Error)
	require.NotNil(t, fresh.DefaultWorkspaceID)
	assert.Equal(t, owner.WorkspaceID, *fresh.DefaultWorkspaceID)

	var invite model.WorkspaceInvite
	require.NoError(t, s.DB.First(&invite, created.Invite.ID).Error)
	assert.Equal(t, 1, invite.UsedCount)

	// Audit chain written inside the redemption transaction.
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityInviteAccepted))
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityMemberJoined))
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityInviteUsed))
}

func TestRedeemInviteUnknownToken(t *testing.T) {
	s := newTestService(t)
	joiner := createUser(t, s.DB, "joiner@example.com")

	res, err := s.RedeemInvite(joiner.ID, "not-a-real-token")
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res.Status)
}

func TestRedeemInviteIdempotent(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	joiner := createUser(t, s.DB, "joiner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 5)
	require.NoError(t, err)

	first, err := s.RedeemInvite(joiner.ID, created.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemAccepted, first.Status)

	// A second redemption succeeds without consuming another use.
	second, err := s.RedeemInvite(joiner.ID, created.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemAlreadyMember, second.Status)
	assert.Equal(t, owner.WorkspaceID, second.WorkspaceID)

	var invite model.WorkspaceInvite
	require.NoError(t, s.DB.First(&invite, created.Invite.ID).Error)
	assert.Equal(t, 1, invite.UsedCount)

	var memberships int64
	require.NoError(t, s.DB.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ? AND user_id = ?", owner.WorkspaceID, joiner.ID).
		Count(&memberships).Error)
	assert.Equal(t, int64(1), memberships)
}

func TestRedeemInviteExpired(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	joiner := createUser(t, s.DB, "joiner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 5)
	require.NoError(t, err)

	// Move the clock past the TTL.
	s.Now = func() time.Time { return time.Now().Add(s.Invites.TTL + time.Hour) }

	res, err := s.RedeemInvite(joiner.ID, created.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemExpired, res.Status)

	ok, err := s.IsMember(owner.WorkspaceID, joiner.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedeemInviteRevoked(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	joiner := createUser(t, s.DB, "joiner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 5)
	require.NoError(t, err)
	require.NoError(t, s.RevokeInvite(owner, created.Invite.ID))

	// A manually revoked invite is indistinguishable from a missing one.
	res, err := s.RedeemInvite(joiner.ID, created.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res.Status)
}

func TestRedeemInviteAutoRevokesWhenUsedUp(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	first := createUser(t, s.DB, "first@example.com")
	second := createUser(t, s.DB, "second@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 1)
	require.NoError(t, err)

	res, err := s.RedeemInvite(first.ID, created.Token)
	require.NoError(t, err)
	require.Equal(t, RedeemAccepted, res.Status)

	// Exhaustion revoked the invite in the same transaction.
	var invite model.WorkspaceInvite
	require.NoError(t, s.DB.First(&invite, created.Invite.ID).Error)
	assert.NotNil(t, invite.RevokedAt)
	assert.Equal(t, model.InviteStatusUsedUp, invite.StatusAt(time.Now()))
	assert.Equal(t, int64(1), countActivities(t, s.DB, owner.WorkspaceID, model.ActivityInviteUsedUp))

	// The second user sees used_up, not invalid.
	res2, err := s.RedeemInvite(second.ID, created.Token)
	require.NoError(t, err)
	assert.Equal(t, RedeemUsedUp, res2.Status)

	ok, err := s.IsMember(owner.WorkspaceID, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedeemInviteNeverOverAdmits(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 3)
	require.NoError(t, err)

	admitted := 0
	for i := 0; i < 10; i++ {
		u := createUser(t, s.DB, string(rune('a'+i))+"@example.com")
		res, err := s.RedeemInvite(u.ID, created.Token)
		require.NoError(t, err)
		if res.Status == RedeemAccepted {
			admitted++
		} else {
			assert.Equal(t, RedeemUsedUp, res.Status)
		}
	}
	assert.Equal(t, 3, admitted)

	var invite model.WorkspaceInvite
	require.NoError(t, s.DB.First(&invite, created.Invite.ID).Error)
	assert.Equal(t, 3, invite.UsedCount)
}

func TestRevokeInviteNotFoundWhenAlreadyRevoked(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")

	created, err := s.CreateInvite(owner, model.RoleMember, 5)
	require.NoError(t, err)

	require.NoError(t, s.RevokeInvite(owner, created.Invite.ID))
	assert.ErrorIs(t, s.RevokeInvite(owner, created.Invite.ID), ErrNotFound)
	assert.ErrorIs(t, s.RevokeInvite(owner, 9999), ErrNotFound)
}

func TestListInvitesReportsStatus(t *testing.T) {
	s := newTestService(t)
	owner := ownerWithWorkspace(t, s, "owner@example.com")
	member := addMember(t, s, owner.WorkspaceID, "member@example.com", model.RoleMember)

	_, err := s.ListInvites(member)
	assert.ErrorIs(t, err, ErrForbidden)

	active, err := s.CreateInvite(owner, model.RoleMember, 5)
	require.NoError(t, err)
	revoked, err := s.CreateInvite(owner, model.RoleOwner, 5)
	require.NoError(t, err)
	require.NoError(t, s.RevokeInvite(owner, revoked.Invite.ID))

	rows, err := s.ListInvites(owner)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[uint]model.WorkspaceInvite{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	activeRow := byID[active.Invite.ID]
	revokedRow := byID[revoked.Invite.ID]
	assert.Equal(t, model.InviteStatusActive, activeRow.StatusAt(time.Now()))
	assert.Equal(t, model.InviteStatusRevoked, revokedRow.StatusAt(time.Now()))
}
