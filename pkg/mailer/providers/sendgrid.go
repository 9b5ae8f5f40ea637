package providers

import (
	"context"
	"net/http"

	"uplora/pkg/mailer"
)

const (
	SendGridName   = "sendgrid"
	SendGridAPIURL = "https://api.sendgrid.com"

	sendGridSendPath   = "/v3/mail/send"
	sendGridScopesPath = "/v3/scopes"
	sendGridMessageID  = "X-Message-Id"
)

type SendGridConfig struct {
	APIKey     string
	APIURL     string
	HTTPClient *http.Client
}

type SendGrid struct {
	apiClient
}

func NewSendGrid(cfg SendGridConfig) *SendGrid {
	return &SendGrid{apiClient: newAPIClient(SendGridName, cfg.APIKey, cfg.APIURL, SendGridAPIURL, cfg.HTTPClient)}
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	ReplyTo          *sendGridAddress          `json:"reply_to,omitempty"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func (p *SendGrid) Send(ctx context.Context, msg *mailer.Message) (mailer.Receipt, error) {
	body := sendGridMail{
		From:    sendGridAddress{Email: msg.From},
		Subject: msg.Subject,
	}

	var recipients sendGridPersonalization
	for _, to := range msg.To {
		recipients.To = append(recipients.To, sendGridAddress{Email: to})
	}
	body.Personalizations = []sendGridPersonalization{recipients}

	if msg.ReplyTo != "" {
		body.ReplyTo = &sendGridAddress{Email: msg.ReplyTo}
	}

	// SendGrid requires text/plain before text/html when both are present.
	if msg.Text != "" {
		body.Content = append(body.Content, sendGridContent{Type: "text/plain", Value: msg.Text})
	}
	body.Content = append(body.Content, sendGridContent{Type: "text/html", Value: msg.HTML})

	resp, err := p.do(ctx, http.MethodPost, sendGridSendPath, body)
	if err != nil {
		return mailer.Receipt{}, err
	}
	resp.Body.Close()

	return mailer.Receipt{Provider: p.name, MessageID: resp.Header.Get(sendGridMessageID)}, nil
}

func (p *SendGrid) Verify(ctx context.Context) error {
	return p.verify(ctx, sendGridScopesPath)
}
