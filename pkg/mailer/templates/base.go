package templates

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	NamePasswordReset     = "password-reset"
	NameTeamInvite        = "team-invite"
	NameApprovalRequested = "approval-requested"
	NameVideoApproved     = "video-approved"

	defaultResetExpiryHours = 1
	defaultInviteExpiryDays = 7

	errFieldRequiredFmt = "%s is required"
)

var ErrBadLink = errors.New("link must be an absolute http(s) URL")

func required(field string) error {
	return fmt.Errorf(errFieldRequiredFmt, field)
}

// Template renders one email from a typed context. Prepare, when set,
// normalizes and validates the context before rendering.
type Template[T any] struct {
	Name    string
	html    *htmltemplate.Template
	text    *texttemplate.Template
	Prepare func(T) (T, error)
}

// New parses both bodies. The HTML body is escaped; the text body is not,
// so links stay clickable in plain-text clients.
func New[T any](name, htmlBody, textBody string, prepare func(T) (T, error)) (*Template[T], error) {
	h, err := htmltemplate.New(name + ".html").Parse(htmlBody)
	if err != nil {
		return nil, err
	}
	t, err := texttemplate.New(name + ".txt").Parse(textBody)
	if err != nil {
		return nil, err
	}
	return &Template[T]{Name: name, html: h, text: t, Prepare: prepare}, nil
}

func (t *Template[T]) Render(data T) (html, text string, err error) {
	if t.Prepare != nil {
		if data, err = t.Prepare(data); err != nil {
			return "", "", err
		}
	}

	var hb, tb bytes.Buffer
	if err := t.html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
