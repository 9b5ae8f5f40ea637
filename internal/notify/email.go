package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"uplora/internal/config"
	"uplora/pkg/mailer"
	"uplora/pkg/mailer/providers"
	"uplora/pkg/mailer/templates"
	"uplora/pkg/metrics"

	"go.uber.org/zap"
)

const (
	subjectVideoApproved     = "Your video was approved"
	subjectApprovalRequested = "A video is waiting for your approval"
	subjectTeamInviteFmt     = "You're invited to join %s"
	subjectPasswordReset     = "Reset your password"

	pathInvite        = "/invite"
	pathResetPassword = "/reset-password"
	pathVideoFmt      = "/videos/%s"
	queryToken        = "token"

	outcomeSent   = "sent"
	outcomeFailed = "failed"

	errUnknownKindFmt = "%w: unknown kind %q"
	errDecodeJobFmt   = "%w: decode %s: %v"
	errPermanentFmt   = "%w: %w"
)

var (
	// ErrPermanent marks a message that will never succeed, such as a
	// template that rejects its data. Queue consumers drop these.
	ErrPermanent = errors.New("permanent notification failure")

	errNoProviders = errors.New("no email provider configured")
)

// EmailNotifier renders the mail templates and sends them through the
// configured providers.
type EmailNotifier struct {
	mailer  *mailer.Mailer
	company string
	baseURL string
	metrics *metrics.Metrics
	logger  *zap.Logger

	videoApproved     *templates.Template[templates.VideoApprovedContext]
	approvalRequested *templates.Template[templates.ApprovalRequestedContext]
	teamInvite        *templates.Template[templates.TeamInviteContext]
	passwordReset     *templates.Template[templates.PasswordResetContext]
}

// NewMailer builds the provider chain from configuration.
func NewMailer(cfg config.MailConfig) (*mailer.Mailer, error) {
	var list []mailer.Provider
	if cfg.ResendAPIKey != "" {
		list = append(list, providers.NewResend(providers.ResendConfig{APIKey: cfg.ResendAPIKey}))
	}
	if cfg.SendGridAPIKey != "" {
		list = append(list, providers.NewSendGrid(providers.SendGridConfig{APIKey: cfg.SendGridAPIKey}))
	}
	if len(list) == 0 {
		return nil, errNoProviders
	}

	var strategy mailer.Strategy
	switch cfg.Strategy {
	case config.MailStrategyFailover:
		strategy = mailer.Failover{}
	case config.MailStrategyRoundRobin:
		strategy = &mailer.RoundRobin{}
	default:
		strategy = mailer.Single{}
	}

	return mailer.New(cfg.From, strategy, list...)
}

func NewEmailNotifier(mail *mailer.Mailer, app config.AppConfig, m *metrics.Metrics, logger *zap.Logger) (*EmailNotifier, error) {
	n := &EmailNotifier{
		mailer:  mail,
		company: app.Name,
		baseURL: app.BaseURL,
		metrics: m,
		logger:  logger,
	}

	var err error
	if n.videoApproved, err = templates.VideoApprovedTemplate(); err != nil {
		return nil, err
	}
	if n.approvalRequested, err = templates.ApprovalRequestedTemplate(); err != nil {
		return nil, err
	}
	if n.teamInvite, err = templates.TeamInviteTemplate(); err != nil {
		return nil, err
	}
	if n.passwordReset, err = templates.PasswordResetTemplate(); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *EmailNotifier) VideoApproved(ctx context.Context, msg VideoApproved) error {
	data := templates.VideoApprovedContext{
		Company:      n.company,
		UploaderName: msg.UploaderName,
		ApproverName: msg.ApproverName,
		VideoTitle:   msg.VideoTitle,
		Status:       msg.Status,
		VideoURL:     n.link(fmt.Sprintf(pathVideoFmt, msg.VideoID), ""),
	}
	return n.record(KindVideoApproved, send(ctx, n.mailer, n.videoApproved, data, msg.To, subjectVideoApproved))
}

func (n *EmailNotifier) ApprovalRequested(ctx context.Context, msg ApprovalRequested) error {
	data := templates.ApprovalRequestedContext{
		Company:       n.company,
		OwnerName:     msg.OwnerName,
		RequesterName: msg.RequesterName,
		TeamName:      msg.TeamName,
		VideoTitle:    msg.VideoTitle,
		VideoURL:      n.link(fmt.Sprintf(pathVideoFmt, msg.VideoID), ""),
	}
	return n.record(KindApprovalRequested, send(ctx, n.mailer, n.approvalRequested, data, msg.To, subjectApprovalRequested))
}

func (n *EmailNotifier) TeamInvite(ctx context.Context, msg TeamInvite) error {
	data := templates.TeamInviteContext{
		Company:     n.company,
		TeamName:    msg.TeamName,
		InviterName: msg.InviterName,
		Role:        msg.Role,
		InviteURL:   n.link(pathInvite, msg.Token),
		ExpiryDays:  roundUp(msg.ExpiresIn, 24*time.Hour),
	}
	subject := fmt.Sprintf(subjectTeamInviteFmt, msg.TeamName)
	return n.record(KindTeamInvite, send(ctx, n.mailer, n.teamInvite, data, msg.To, subject))
}

func (n *EmailNotifier) PasswordReset(ctx context.Context, msg PasswordReset) error {
	data := templates.PasswordResetContext{
		Company:     n.company,
		UserName:    msg.UserName,
		ResetURL:    n.link(pathResetPassword, msg.Token),
		ExpiryHours: roundUp(msg.ExpiresIn, time.Hour),
	}
	return n.record(KindPasswordReset, send(ctx, n.mailer, n.passwordReset, data, msg.To, subjectPasswordReset))
}

// Deliver sends a queued job. Errors wrapping ErrPermanent will not
// succeed on retry.
func (n *EmailNotifier) Deliver(ctx context.Context, job Job) error {
	switch job.Kind {
	case KindVideoApproved:
		var msg VideoApproved
		if err := decode(job, &msg); err != nil {
			return err
		}
		return n.VideoApproved(ctx, msg)
	case KindApprovalRequested:
		var msg ApprovalRequested
		if err := decode(job, &msg); err != nil {
			return err
		}
		return n.ApprovalRequested(ctx, msg)
	case KindTeamInvite:
		var msg TeamInvite
		if err := decode(job, &msg); err != nil {
			return err
		}
		return n.TeamInvite(ctx, msg)
	case KindPasswordReset:
		var msg PasswordReset
		if err := decode(job, &msg); err != nil {
			return err
		}
		return n.PasswordReset(ctx, msg)
	default:
		return fmt.Errorf(errUnknownKindFmt, ErrPermanent, job.Kind)
	}
}

func (n *EmailNotifier) link(path, token string) string {
	u := n.baseURL + path
	if token != "" {
		u += "?" + url.Values{queryToken: {token}}.Encode()
	}
	return mailer.SanitizeURL(u)
}

func (n *EmailNotifier) record(kind string, err error) error {
	outcome := outcomeSent
	if err != nil {
		outcome = outcomeFailed
	}
	if n.metrics != nil {
		n.metrics.EmailsSent.WithLabelValues(kind, outcome).Inc()
	}
	return err
}

func send[T any](ctx context.Context, m *mailer.Mailer, tmpl *templates.Template[T], data T, to, subject string) error {
	_, err := mailer.SendTemplate(ctx, m, tmpl, data, mailer.Message{
		To:      []string{to},
		Subject: subject,
	})
	if errors.Is(err, mailer.ErrRender) {
		return fmt.Errorf(errPermanentFmt, ErrPermanent, err)
	}
	return err
}

func decode(job Job, dst any) error {
	if err := json.Unmarshal(job.Payload, dst); err != nil {
		return fmt.Errorf(errDecodeJobFmt, ErrPermanent, job.Kind, err)
	}
	return nil
}

// roundUp returns d in whole units, at least 1; zero d yields 0 so the
// template default applies.
func roundUp(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(unit)))
}
