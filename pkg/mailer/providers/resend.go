package providers

import (
	"context"
	"encoding/json"
	"net/http"

	"uplora/pkg/mailer"
)

const (
	ResendName   = "resend"
	ResendAPIURL = "https://api.resend.com"

	resendEmailsPath  = "/emails"
	resendAPIKeysPath = "/api-keys"
)

type ResendConfig struct {
	APIKey     string
	APIURL     string
	HTTPClient *http.Client
}

type Resend struct {
	apiClient
}

func NewResend(cfg ResendConfig) *Resend {
	return &Resend{apiClient: newAPIClient(ResendName, cfg.APIKey, cfg.APIURL, ResendAPIURL, cfg.HTTPClient)}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (p *Resend) Send(ctx context.Context, msg *mailer.Message) (mailer.Receipt, error) {
	resp, err := p.do(ctx, http.MethodPost, resendEmailsPath, resendEmail{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return mailer.Receipt{}, err
	}
	defer resp.Body.Close()

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return mailer.Receipt{}, err
	}

	return mailer.Receipt{Provider: p.name, MessageID: out.ID}, nil
}

func (p *Resend) Verify(ctx context.Context) error {
	return p.verify(ctx, resendAPIKeysPath)
}
