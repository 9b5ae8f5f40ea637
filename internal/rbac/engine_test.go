package rbac_test

import (
	"errors"
	"testing"

	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(t *testing.T) *rbac.Checker {
	t.Helper()
	rc, err := rbac.New(presets.Uplora())
	require.NoError(t, err)
	return rc
}

var allRoles = []rbac.Role{presets.RoleOwner, presets.RoleAdmin, presets.RoleManager, presets.RoleEditor}

func TestVideoCapabilities(t *testing.T) {
	checker := newChecker(t)

	tests := []struct {
		role   rbac.Role
		action rbac.Action
		want   bool
	}{
		{presets.RoleOwner, presets.ActionApprove, true},
		{presets.RoleOwner, presets.ActionReject, true},
		{presets.RoleAdmin, presets.ActionApprove, false},
		{presets.RoleManager, presets.ActionApprove, false},
		{presets.RoleEditor, presets.ActionApprove, false},
		{presets.RoleAdmin, presets.ActionDelete, true},
		{presets.RoleManager, presets.ActionDelete, true},
		{presets.RoleEditor, presets.ActionDelete, false},
		{presets.RoleManager, presets.ActionReplace, true},
		{presets.RoleEditor, presets.ActionReplace, false},
		{presets.RoleEditor, presets.ActionUpload, true},
		{presets.RoleEditor, presets.ActionRequestApproval, true},
		{rbac.Role("VIEWER"), presets.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, checker.Can(tt.role, presets.ResourceVideo, tt.action))
		})
	}
}

func TestInviteAndMemberCapabilities(t *testing.T) {
	checker := newChecker(t)

	assert.True(t, checker.Can(presets.RoleManager, presets.ResourceInvite, presets.ActionCancel))
	assert.False(t, checker.Can(presets.RoleEditor, presets.ResourceInvite, presets.ActionCreate))
	assert.True(t, checker.Can(presets.RoleAdmin, presets.ResourceMember, presets.ActionManage))
	assert.False(t, checker.Can(presets.RoleManager, presets.ResourceMember, presets.ActionManage))
}

// An owner passes every check any other role passes.
func TestOwnerIsSuperset(t *testing.T) {
	checker := newChecker(t)
	cfg := presets.Uplora()

	for _, res := range cfg.Resources {
		for _, act := range cfg.Actions {
			for _, role := range allRoles {
				if checker.Can(role, res, act) {
					assert.True(t, checker.Can(presets.RoleOwner, res, act), "%s:%s granted to %s", res, act, role)
				}
			}
		}
	}
}

func TestRolesAllowedApproveIsOwnerOnly(t *testing.T) {
	checker := newChecker(t)
	assert.Equal(t, []rbac.Role{presets.RoleOwner}, checker.RolesAllowed(presets.ResourceVideo, presets.ActionApprove))
	assert.Equal(t,
		[]rbac.Role{presets.RoleOwner, presets.RoleAdmin, presets.RoleManager},
		checker.RolesAllowed(presets.ResourceVideo, presets.ActionDelete))
}

func TestAuthorizeErrors(t *testing.T) {
	checker := newChecker(t)

	err := checker.Authorize(presets.RoleEditor, presets.ResourceVideo, presets.ActionApprove)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rbac.ErrDenied))

	err = checker.Authorize("", presets.ResourceVideo, presets.ActionRead)
	assert.True(t, errors.Is(err, rbac.ErrDenied))

	assert.NoError(t, checker.Authorize(presets.RoleOwner, presets.ResourceVideo, presets.ActionApprove))
}

func TestIsRoleElevated(t *testing.T) {
	checker := newChecker(t)

	assert.True(t, checker.IsRoleElevated(presets.RoleOwner, presets.RoleEditor))
	assert.True(t, checker.IsRoleElevated(presets.RoleAdmin, presets.RoleManager))
	assert.True(t, checker.IsRoleElevated(presets.RoleEditor, presets.RoleEditor))
	assert.False(t, checker.IsRoleElevated(presets.RoleManager, presets.RoleAdmin))
	assert.False(t, checker.IsRoleElevated(rbac.Role("invalid"), presets.RoleEditor))

	assert.NoError(t, checker.RequireRole(presets.RoleAdmin, presets.RoleManager))
	assert.ErrorIs(t, checker.RequireRole(presets.RoleEditor, presets.RoleManager), rbac.ErrDenied)
}

func TestValidateRole(t *testing.T) {
	checker := newChecker(t)

	r, err := checker.ValidateRole("MANAGER")
	require.NoError(t, err)
	assert.Equal(t, presets.RoleManager, r)

	_, err = checker.ValidateRole("manager")
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
}

func TestConfigRejectsNonMonotonicCapabilities(t *testing.T) {
	cfg := presets.Uplora()
	cfg.Capabilities[presets.RoleEditor][presets.ResourceTeam] = []rbac.Action{presets.ActionRead, presets.ActionDelete}

	_, err := rbac.New(cfg)
	assert.Error(t, err)
}

func TestConfigRejectsDuplicateLevels(t *testing.T) {
	cfg := presets.Uplora()
	cfg.Roles[1].Level = cfg.Roles[0].Level

	_, err := rbac.New(cfg)
	assert.Error(t, err)
}
