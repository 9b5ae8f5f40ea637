package mailer

import (
	"context"
	"fmt"

	"uplora/pkg/mailer/templates"
)

const errRenderFmt = "%w: %s: %v"

// Mailer sends messages through a fixed provider list. It is safe for
// concurrent use.
type Mailer struct {
	providers []Provider
	strategy  Strategy
	from      string
}

// New returns a Mailer that fills in from on messages without a sender.
// A nil strategy means Single.
func New(from string, strategy Strategy, providers ...Provider) (*Mailer, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	for _, p := range providers {
		if p == nil {
			return nil, ErrNilProvider
		}
	}
	if from != "" && !validAddress(from) {
		return nil, ErrInvalidFrom
	}
	if strategy == nil {
		strategy = Single{}
	}

	return &Mailer{
		providers: append([]Provider(nil), providers...),
		strategy:  strategy,
		from:      from,
	}, nil
}

func (m *Mailer) Send(ctx context.Context, msg *Message) (Receipt, error) {
	out := msg.clone()
	if out.From == "" {
		out.From = m.from
	}
	if err := out.validate(); err != nil {
		return Receipt{}, err
	}
	return m.strategy.Send(ctx, out, m.providers)
}

// Verify reports the credential check of every provider by name.
func (m *Mailer) Verify(ctx context.Context) map[string]error {
	results := make(map[string]error, len(m.providers))
	for _, p := range m.providers {
		results[p.Name()] = p.Verify(ctx)
	}
	return results
}

// SendTemplate renders tmpl with data into msg and sends it. Render
// failures wrap ErrRender.
func SendTemplate[T any](ctx context.Context, m *Mailer, tmpl *templates.Template[T], data T, msg Message) (Receipt, error) {
	html, text, err := tmpl.Render(data)
	if err != nil {
		return Receipt{}, fmt.Errorf(errRenderFmt, ErrRender, tmpl.Name, err)
	}
	msg.HTML = html
	msg.Text = text
	return m.Send(ctx, &msg)
}
