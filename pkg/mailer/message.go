package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
)

var (
	ErrNoProviders      = errors.New("mailer: no providers configured")
	ErrNilProvider      = errors.New("mailer: provider cannot be nil")
	ErrInvalidFrom      = errors.New("mailer: invalid sender address")
	ErrNoRecipients     = errors.New("mailer: at least one recipient required")
	ErrSubjectRequired  = errors.New("mailer: subject is required")
	ErrBodyRequired     = errors.New("mailer: html body is required")
	ErrRender           = errors.New("mailer: template render failed")
	ErrAllProvidersDown = errors.New("mailer: all providers failed")
)

const errInvalidRecipientFmt = "mailer: invalid recipient %q"

// Message is a single outgoing email. HTML is required; Text is sent as
// the plain-text alternative when set.
type Message struct {
	To      []string
	From    string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Receipt identifies the provider that accepted a message.
type Receipt struct {
	Provider  string
	MessageID string
}

type Provider interface {
	Name() string
	Send(ctx context.Context, msg *Message) (Receipt, error)
	// Verify checks that the provider accepts the configured credentials.
	Verify(ctx context.Context) error
}

func (m *Message) clone() *Message {
	c := *m
	c.To = append([]string(nil), m.To...)
	return &c
}

func (m *Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if !validAddress(to) {
			return fmt.Errorf(errInvalidRecipientFmt, to)
		}
	}
	if !validAddress(m.From) {
		return ErrInvalidFrom
	}
	if m.ReplyTo != "" {
		if !validAddress(m.ReplyTo) {
			return ErrInvalidFrom
		}
	}
	if m.Subject == "" {
		return ErrSubjectRequired
	}
	if m.HTML == "" {
		return ErrBodyRequired
	}
	return nil
}

func validAddress(addr string) bool {
	_, err := mail.ParseAddress(addr)
	return err == nil
}

// SanitizeURL returns rawURL when it is an http(s) URL, otherwise "".
func SanitizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}
