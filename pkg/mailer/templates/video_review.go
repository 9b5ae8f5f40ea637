package templates

import (
	"strings"
)

type ApprovalRequestedContext struct {
	Company       string
	OwnerName     string
	RequesterName string
	TeamName      string
	VideoTitle    string
	VideoURL      string
}

func ApprovalRequestedTemplate() (*Template[ApprovalRequestedContext], error) {
	htmlTmpl := `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Approval requested</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>{{.Company}}</h2>
		<p>{{if .OwnerName}}Hi {{.OwnerName}},{{else}}Hi there,{{end}}</p>
		<p>{{if .RequesterName}}{{.RequesterName}}{{else}}A team member{{end}} asked you to approve <strong>{{.VideoTitle}}</strong>{{if .TeamName}} in {{.TeamName}}{{end}}.</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.VideoURL}}" style="background-color: #28a745; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
				Review video
			</a>
		</div>
	</div>
</body>
</html>
`

	textTmpl := `
Approval requested

{{if .OwnerName}}Hi {{.OwnerName}},{{else}}Hi there,{{end}}

{{if .RequesterName}}{{.RequesterName}}{{else}}A team member{{end}} asked you to approve "{{.VideoTitle}}"{{if .TeamName}} in {{.TeamName}}{{end}}.

Review it here:
{{.VideoURL}}
`

	parser := func(data ApprovalRequestedContext) (ApprovalRequestedContext, error) {
		return data, normalizeVideoMail(&data.Company, &data.VideoTitle, &data.VideoURL)
	}

	return New(NameApprovalRequested, htmlTmpl, textTmpl, parser)
}

type VideoApprovedContext struct {
	Company      string
	UploaderName string
	ApproverName string
	VideoTitle   string
	Status       string
	VideoURL     string
}

func VideoApprovedTemplate() (*Template[VideoApprovedContext], error) {
	htmlTmpl := `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Your video was approved</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>{{.Company}}</h2>
		<p>{{if .UploaderName}}Hi {{.UploaderName}},{{else}}Hi there,{{end}}</p>
		<p><strong>{{.VideoTitle}}</strong> was approved{{if .ApproverName}} by {{.ApproverName}}{{end}} and is now {{.Status}}.</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.VideoURL}}" style="background-color: #28a745; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
				Open video
			</a>
		</div>
	</div>
</body>
</html>
`

	textTmpl := `
Your video was approved

{{if .UploaderName}}Hi {{.UploaderName}},{{else}}Hi there,{{end}}

"{{.VideoTitle}}" was approved{{if .ApproverName}} by {{.ApproverName}}{{end}} and is now {{.Status}}.

{{.VideoURL}}
`

	parser := func(data VideoApprovedContext) (VideoApprovedContext, error) {
		return data, normalizeVideoMail(&data.Company, &data.VideoTitle, &data.VideoURL)
	}

	return New(NameVideoApproved, htmlTmpl, textTmpl, parser)
}

func normalizeVideoMail(company, title, link *string) error {
	*company = strings.TrimSpace(*company)
	*title = strings.TrimSpace(*title)

	if *company == "" {
		return required("company")
	}
	if *title == "" {
		return required("video title")
	}

	checked, err := checkLink(*link, "video URL")
	if err != nil {
		return err
	}
	*link = checked
	return nil
}
