package templates

import (
	"strings"
)

type PasswordResetContext struct {
	Company     string
	UserName    string
	ResetURL    string
	ExpiryHours int
}

func PasswordResetTemplate() (*Template[PasswordResetContext], error) {
	htmlTmpl := `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Reset your password</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>{{.Company}}</h2>
		<p>{{if .UserName}}Hi {{.UserName}},{{else}}Hi there,{{end}}</p>
		<p>Someone asked to reset the password on your {{.Company}} account. Use the button below to choose a new one:</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.ResetURL}}" style="background-color: #dc3545; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
				Choose a new password
			</a>
		</div>
		<p style="word-break: break-all; color: #dc3545;">{{.ResetURL}}</p>
		<p>The link works once and expires in {{.ExpiryHours}} hour(s). If this wasn't you, ignore this email.</p>
	</div>
</body>
</html>
`

	textTmpl := `
Reset your password

{{if .UserName}}Hi {{.UserName}},{{else}}Hi there,{{end}}

Someone asked to reset the password on your {{.Company}} account.
Choose a new one here:

{{.ResetURL}}

The link works once and expires in {{.ExpiryHours}} hour(s). If this wasn't you, ignore this email.
`

	parser := func(data PasswordResetContext) (PasswordResetContext, error) {
		data.Company = strings.TrimSpace(data.Company)
		data.UserName = strings.TrimSpace(data.UserName)

		if data.Company == "" {
			return data, required("company")
		}

		link, err := checkLink(data.ResetURL, "reset URL")
		if err != nil {
			return data, err
		}
		data.ResetURL = link

		if data.ExpiryHours <= 0 {
			data.ExpiryHours = defaultResetExpiryHours
		}

		return data, nil
	}

	return New(NamePasswordReset, htmlTmpl, textTmpl, parser)
}
