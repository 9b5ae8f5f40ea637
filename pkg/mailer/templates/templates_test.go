package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoTemplatesRejectBadLinks(t *testing.T) {
	tmpl, err := VideoApprovedTemplate()
	require.NoError(t, err)

	_, _, err = tmpl.Render(VideoApprovedContext{Company: "Uplora", VideoTitle: "clip.mp4", VideoURL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, ErrBadLink)

	_, _, err = tmpl.Render(VideoApprovedContext{Company: "Uplora", VideoURL: "https://x.test/v/1"})
	assert.Error(t, err)

	html, _, err := tmpl.Render(VideoApprovedContext{Company: "Uplora", VideoTitle: "clip.mp4", Status: "POSTED", VideoURL: "https://x.test/v/1"})
	require.NoError(t, err)
	assert.Contains(t, html, "POSTED")
}

func TestPasswordResetDefaultsExpiry(t *testing.T) {
	tmpl, err := PasswordResetTemplate()
	require.NoError(t, err)

	_, text, err := tmpl.Render(PasswordResetContext{Company: " Uplora ", ResetURL: "https://app.uplora.test/reset-password?token=t"})
	require.NoError(t, err)
	assert.Contains(t, text, "1 hour(s)")
	assert.Contains(t, text, "Hi there,")
	assert.Contains(t, text, "your Uplora account")
}

func TestTeamInviteRequiresTeamName(t *testing.T) {
	tmpl, err := TeamInviteTemplate()
	require.NoError(t, err)

	_, _, err = tmpl.Render(TeamInviteContext{Company: "Uplora", InviteURL: "https://app.uplora.test/invite?token=t"})
	assert.EqualError(t, err, "team name is required")
}
