// Package notify delivers account emails: welcome, password reset and
// free-form notices.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
)

//go:generate go tool moq -out sender_mock.go . Sender

// Sender delivers account notifications. Implementations must not retry.
type Sender interface {
	// SendWelcome greets a user who signed up on their own.
	SendWelcome(ctx context.Context, to Recipient) error
	// SendPasswordReset delivers the plaintext reset token as a link.
	SendPasswordReset(ctx context.Context, to Recipient, token string) error
	// SendWelcomeFromRoot greets a user created by an administrator and points
	// them at path to choose their own password.
	SendWelcomeFromRoot(ctx context.Context, to Recipient, path string) error
	// SendCustomMessage sends msg with an optional link to path.
	SendCustomMessage(ctx context.Context, to Recipient, msg, path string) error
}

// Recipient is the addressee of a notification.
type Recipient struct {
	Name  string
	Email string
}

// FirstName returns the first word of the recipient name.
func (r Recipient) FirstName() string {
	if f := strings.Fields(r.Name); len(f) > 0 {
		return f[0]
	}
	return r.Name
}

// Subjects
const (
	SubjectWelcome = "Welcome to the Natours family!"
	SubjectReset   = "Your password reset token (valid for a few minutes)"
	SubjectCustom  = "Natours account notice"
)

// MsgPasswordUpdated is sent after every successful password change.
const MsgPasswordUpdated = "Your password has been updated. If it was not you, reset your password immediately."

const mainTitle = "Natours"

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string // plain text alternative of HTML
}

type templateData struct {
	MainTitle string
	MainURL   string
	FirstName string
	URL       string
	Msg       string
	Subject   string
}

var templates = template.Must(template.New("email").Parse(`
{{define "header"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body>
<p>Hi {{.FirstName}},</p>{{end}}

{{define "footer"}}<p>The {{.MainTitle}} team, <a href="{{.MainURL}}">{{.MainURL}}</a></p>
</body></html>{{end}}

{{define "welcome"}}{{template "header" .}}
<p>Welcome to {{.MainTitle}}, we're glad to have you.</p>
{{template "footer" .}}{{end}}

{{define "passwdReset"}}{{template "header" .}}
<p>Forgot your password? Submit your new password to <a href="{{.URL}}">{{.URL}}</a>.</p>
<p>If you didn't forget your password, please ignore this email.</p>
{{template "footer" .}}{{end}}

{{define "welcomeFromRoot"}}{{template "header" .}}
<p>An account on {{.MainTitle}} was created for you.</p>
<p>Please choose your own password here: <a href="{{.URL}}">{{.URL}}</a>.</p>
{{template "footer" .}}{{end}}

{{define "custom"}}{{template "header" .}}
<p>{{.Msg}}</p>{{if .URL}}
<p><a href="{{.URL}}">{{.URL}}</a></p>{{end}}
{{template "footer" .}}{{end}}
`))

// Template names
const (
	TemplateWelcome         = "welcome"
	TemplatePasswordReset   = "passwdReset"
	TemplateWelcomeFromRoot = "welcomeFromRoot"
	TemplateCustom          = "custom"
)

// Renderer builds messages from the built-in templates.
type Renderer struct {
	mainURL string
}

// NewRenderer returns a renderer linking to mainURL.
func NewRenderer(mainURL string) *Renderer {
	return &Renderer{mainURL: strings.TrimRight(mainURL, "/")}
}

// Render executes the named template for to. A non-empty path is appended
// to the main site URL to form the link.
func (r *Renderer) Render(name, subject string, to Recipient, path, msg string) (*Message, error) {
	if templates.Lookup(name) == nil {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	data := templateData{
		MainTitle: mainTitle,
		MainURL:   r.mainURL,
		FirstName: to.FirstName(),
		Msg:       msg,
		Subject:   subject,
	}
	if path != "" {
		data.URL = r.mainURL + "/" + strings.TrimLeft(path, "/")
	}

	var out bytes.Buffer
	if err := templates.ExecuteTemplate(&out, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	body := out.String()
	return &Message{To: to.Email, Subject: subject, HTML: body, Text: htmlToText(body)}, nil
}
