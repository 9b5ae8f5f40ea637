// Package notify delivers the emails the approval workflow, team invites
// and password resets send. Delivery is best effort: callers log failures
// and carry on.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	KindVideoApproved     = "video_approved"
	KindApprovalRequested = "approval_requested"
	KindTeamInvite        = "team_invite"
	KindPasswordReset     = "password_reset"
)

type Notifier interface {
	VideoApproved(ctx context.Context, msg VideoApproved) error
	ApprovalRequested(ctx context.Context, msg ApprovalRequested) error
	TeamInvite(ctx context.Context, msg TeamInvite) error
	PasswordReset(ctx context.Context, msg PasswordReset) error
}

type VideoApproved struct {
	To           string    `json:"to"`
	UploaderName string    `json:"uploaderName"`
	ApproverName string    `json:"approverName"`
	VideoID      uuid.UUID `json:"videoId"`
	VideoTitle   string    `json:"videoTitle"`
	Status       string    `json:"status"`
}

type ApprovalRequested struct {
	To            string    `json:"to"`
	OwnerName     string    `json:"ownerName"`
	RequesterName string    `json:"requesterName"`
	TeamName      string    `json:"teamName"`
	VideoID       uuid.UUID `json:"videoId"`
	VideoTitle    string    `json:"videoTitle"`
}

type TeamInvite struct {
	To          string        `json:"to"`
	TeamName    string        `json:"teamName"`
	InviterName string        `json:"inviterName"`
	Role        string        `json:"role"`
	Token       string        `json:"token"`
	ExpiresIn   time.Duration `json:"expiresIn"`
}

type PasswordReset struct {
	To        string        `json:"to"`
	UserName  string        `json:"userName"`
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"expiresIn"`
}

// Nop drops every message. Used when no email provider is configured.
type Nop struct {
	logger *zap.Logger
}

func NewNop(logger *zap.Logger) *Nop {
	return &Nop{logger: logger}
}

func (n *Nop) VideoApproved(_ context.Context, msg VideoApproved) error {
	n.skip(KindVideoApproved, msg.VideoID.String())
	return nil
}

func (n *Nop) ApprovalRequested(_ context.Context, msg ApprovalRequested) error {
	n.skip(KindApprovalRequested, msg.VideoID.String())
	return nil
}

func (n *Nop) TeamInvite(_ context.Context, msg TeamInvite) error {
	n.skip(KindTeamInvite, msg.TeamName)
	return nil
}

func (n *Nop) PasswordReset(_ context.Context, _ PasswordReset) error {
	n.skip(KindPasswordReset, "")
	return nil
}

func (n *Nop) skip(kind, ref string) {
	n.logger.Debug("email delivery disabled, dropping notification",
		zap.String("kind", kind), zap.String("ref", ref))
}
