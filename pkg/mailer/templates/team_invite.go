package templates

import (
	"strings"
)

type TeamInviteContext struct {
	Company     string
	TeamName    string
	InviterName string
	Role        string
	InviteURL   string
	ExpiryDays  int
}

func TeamInviteTemplate() (*Template[TeamInviteContext], error) {
	htmlTmpl := `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>You're invited to {{.TeamName}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>{{.Company}}</h2>
		<p>{{if .InviterName}}{{.InviterName}} invited you{{else}}You have been invited{{end}} to join <strong>{{.TeamName}}</strong> as {{.Role}}.</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.InviteURL}}" style="background-color: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
				Accept invitation
			</a>
		</div>
		<p style="word-break: break-all; color: #007bff;">{{.InviteURL}}</p>
		<p>This invitation expires in {{.ExpiryDays}} day(s).</p>
	</div>
</body>
</html>
`

	textTmpl := `
You're invited to {{.TeamName}}

{{if .InviterName}}{{.InviterName}} invited you{{else}}You have been invited{{end}} to join {{.TeamName}} on {{.Company}} as {{.Role}}.

Accept the invitation here:
{{.InviteURL}}

This invitation expires in {{.ExpiryDays}} day(s).
`

	parser := func(data TeamInviteContext) (TeamInviteContext, error) {
		data.Company = strings.TrimSpace(data.Company)
		data.TeamName = strings.TrimSpace(data.TeamName)
		data.InviterName = strings.TrimSpace(data.InviterName)

		if data.Company == "" {
			return data, required("company")
		}
		if data.TeamName == "" {
			return data, required("team name")
		}

		link, err := checkLink(data.InviteURL, "invite URL")
		if err != nil {
			return data, err
		}
		data.InviteURL = link

		if data.ExpiryDays <= 0 {
			data.ExpiryDays = defaultInviteExpiryDays
		}

		return data, nil
	}

	return New(NameTeamInvite, htmlTmpl, textTmpl, parser)
}
