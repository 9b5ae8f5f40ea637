package presets

import (
	"uplora/internal/domain/team"
	"uplora/internal/rbac"
)

const (
	RoleOwner   = rbac.Role(team.RoleOwner)
	RoleAdmin   = rbac.Role(team.RoleAdmin)
	RoleManager = rbac.Role(team.RoleManager)
	RoleEditor  = rbac.Role(team.RoleEditor)

	ResourceVideo  rbac.Resource = "video"
	ResourceInvite rbac.Resource = "invite"
	ResourceMember rbac.Resource = "member"
	ResourceTeam   rbac.Resource = "team"

	ActionRead            rbac.Action = "read"
	ActionUpload          rbac.Action = "upload"
	ActionRequestApproval rbac.Action = "request_approval"
	ActionApprove         rbac.Action = "approve"
	ActionReject          rbac.Action = "reject"
	ActionDelete          rbac.Action = "delete"
	ActionReplace         rbac.Action = "replace"
	ActionCreate          rbac.Action = "create"
	ActionCancel          rbac.Action = "cancel"
	ActionManage          rbac.Action = "manage"
)

// Uplora is the team permission model. Approving and rejecting videos is
// reserved for the team owner; every other capability is shared downward
// by level.
func Uplora() rbac.Config {
	editorVideo := []rbac.Action{ActionRead, ActionUpload, ActionRequestApproval}
	managerVideo := append(append([]rbac.Action{}, editorVideo...), ActionDelete, ActionReplace)
	ownerVideo := append(append([]rbac.Action{}, managerVideo...), ActionApprove, ActionReject)

	return rbac.Config{
		Roles: []rbac.RoleDefinition{
			{Name: RoleOwner, Level: 4},
			{Name: RoleAdmin, Level: 3},
			{Name: RoleManager, Level: 2},
			{Name: RoleEditor, Level: 1},
		},
		Resources: []rbac.Resource{
			ResourceVideo,
			ResourceInvite,
			ResourceMember,
			ResourceTeam,
		},
		Actions: []rbac.Action{
			ActionRead,
			ActionUpload,
			ActionRequestApproval,
			ActionApprove,
			ActionReject,
			ActionDelete,
			ActionReplace,
			ActionCreate,
			ActionCancel,
			ActionManage,
		},
		Capabilities: map[rbac.Role]map[rbac.Resource][]rbac.Action{
			RoleOwner: {
				ResourceVideo:  ownerVideo,
				ResourceInvite: {ActionRead, ActionCreate, ActionCancel},
				ResourceMember: {ActionRead, ActionManage},
				ResourceTeam:   {ActionRead, ActionManage, ActionDelete},
			},
			RoleAdmin: {
				ResourceVideo:  managerVideo,
				ResourceInvite: {ActionRead, ActionCreate, ActionCancel},
				ResourceMember: {ActionRead, ActionManage},
				ResourceTeam:   {ActionRead},
			},
			RoleManager: {
				ResourceVideo:  managerVideo,
				ResourceInvite: {ActionRead, ActionCreate, ActionCancel},
				ResourceMember: {ActionRead},
				ResourceTeam:   {ActionRead},
			},
			RoleEditor: {
				ResourceVideo:  editorVideo,
				ResourceMember: {ActionRead},
				ResourceTeam:   {ActionRead},
			},
		},
	}
}
