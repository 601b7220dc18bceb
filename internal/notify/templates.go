package notify

import (
	"bytes"
	"text/template"
)

var tmpl = template.Must(template.New("notify").Parse(`
{{define "task/new"}}Hello,

A new maintenance request has been filed by {{.Requester}}:

    {{.Description}}

Facility: {{.Facility}}
Requested on: {{.DateRequested}}

Please review and confirm it.

MainTraq
{{end}}

{{define "task/assigned"}}Hello {{.Assignee}},

You have been assigned a maintenance task:

    {{.Description}}

Facility: {{.Facility}}
Requested on: {{.DateRequested}}

Please acknowledge receipt and log your progress.

MainTraq
{{end}}

{{define "task/confirmed"}}Hello {{.Requester}},

Your maintenance request has been confirmed:

    {{.Description}}

Facility: {{.Facility}}

It will be assigned to a maintenance team member shortly.

MainTraq
{{end}}

{{define "task/resolved"}}Hello {{.Requester}},

Your maintenance request has been resolved:

    {{.Description}}

Facility: {{.Facility}}

Thank you for reporting it.

MainTraq
{{end}}

{{define "task/done"}}Hello,

{{.Actor}} has marked this task as done:

    {{.Description}}

Facility: {{.Facility}}
Completed on: {{.DateCompleted}}

Please review and resolve it.

MainTraq
{{end}}

{{define "task/rejected"}}Hello {{.Requester}},

Your maintenance request has been rejected:

    {{.Description}}

Facility: {{.Facility}}
Requested on: {{.DateRequested}}
{{if .Reasons}}
Comments about this rejection:

    {{.Reasons}}
{{end}}
MainTraq
{{end}}

{{define "auth/confirm"}}Hello {{.Username}},

Welcome to MainTraq! To confirm your account, follow this link:

    {{.Link}}

The link expires in one hour.

MainTraq
{{end}}

{{define "auth/reset"}}Hello {{.Username}},

To reset your password, follow this link:

    {{.Link}}

The link expires in one hour. If you did not request a password reset,
ignore this email and your password will remain unchanged.

MainTraq
{{end}}

{{define "auth/change_email"}}Hello {{.Username}},

To confirm your new email address, follow this link:

    {{.Link}}

The link expires in one hour.

MainTraq
{{end}}
`))

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
