package team

const (
	msgInviteTargetRequired = "id or email is required"
	msgNoPendingInvites     = "no pending invite matched"
	msgInvitePending        = "a pending invite for this email already exists"
	msgAlreadyMember        = "user is already a member of this team"
	msgRoleTooHigh          = "you cannot grant a role above your own"
	msgMemberOutranks       = "you cannot change a member who outranks you"
	msgOwnerNotRemovable    = "the team owner cannot be removed"
	msgOwnerCannotLeave     = "the team owner cannot leave the team"
	msgNothingToUpdate      = "role or status is required"
	msgInviteWrongEmail     = "invite was sent to a different email address"
	msgInviteNotPending     = "invite has already been used or cancelled"
	msgTokenRequired        = "token is required"
	msgTokenFailed          = "failed to generate invite token"
)
