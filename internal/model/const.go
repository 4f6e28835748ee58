package model

// Role is a user's role within a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// ParseRole maps arbitrary input to a known role, defaulting to member.
func ParseRole(raw string) Role {
	if raw == string(RoleOwner) {
		return RoleOwner
	}
	return RoleMember
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "todo"
	TaskStatusDone TaskStatus = "done"
)

// TaskSource records where a task came from.
type TaskSource string

const (
	TaskSourceInbox     TaskSource = "inbox"
	TaskSourceBreakdown TaskSource = "breakdown"
	TaskSourceWeekly    TaskSource = "weekly"
	TaskSourceDemo      TaskSource = "demo"
)

// ActivityKind is the closed set of audit event kinds. New kinds must be
// added here; free-form strings are not accepted by the activity writer.
type ActivityKind string

const (
	ActivityCreated       ActivityKind = "created"
	ActivityTitleUpdated  ActivityKind = "title_updated"
	ActivityStatusToggled ActivityKind = "status_toggled"
	ActivityAssigned      ActivityKind = "assigned"
	ActivityFocusSet      ActivityKind = "focus_set"
	ActivityFocusCleared  ActivityKind = "focus_cleared"
	ActivityDeleted       ActivityKind = "deleted"
	ActivityComment       ActivityKind = "comment"
	ActivityForbidden     ActivityKind = "forbidden"

	ActivityWorkspaceRenamed  ActivityKind = "workspace_renamed"
	ActivityInviteCreated     ActivityKind = "workspace_invite_created"
	ActivityInviteRevoked     ActivityKind = "workspace_invite_revoked"
	ActivityInviteAccepted    ActivityKind = "workspace_invite_accepted"
	ActivityInviteUsed        ActivityKind = "workspace_invite_used"
	ActivityInviteUsedUp      ActivityKind = "workspace_invite_used_up"
	ActivityMemberJoined      ActivityKind = "workspace_member_joined"
	ActivityMemberRoleUpdated ActivityKind = "workspace_member_role_updated"
	ActivityMemberRemoved     ActivityKind = "workspace_member_removed"
)

// InviteStatus is the derived lifecycle state of an invite. It is computed
// at read time and never stored.
type InviteStatus string

const (
	InviteStatusActive  InviteStatus = "active"
	InviteStatusRevoked InviteStatus = "revoked"
	InviteStatusExpired InviteStatus = "expired"
	InviteStatusUsedUp  InviteStatus = "used_up"
)
