package team

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusRejected InviteStatus = "REJECTED"
)

var (
	ErrInviteNotPending = errors.New("invite is no longer pending")
	ErrInviteExpired    = errors.New("invite has expired")
	ErrInviteEmail      = errors.New("invite was issued to a different email")
)

// Invite stores only the hash of its token; the raw token leaves the
// server once, in the invitation email.
type Invite struct {
	ID         uuid.UUID
	TeamID     uuid.UUID
	Email      string
	Role       Role
	TokenHash  string
	Status     InviteStatus
	InvitedBy  uuid.UUID
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CheckAcceptable validates the invite for acceptance by email at now.
// Expiry is passive: it is evaluated here rather than swept.
func (i *Invite) CheckAcceptable(email string, now time.Time) error {
	if i.Status != InviteStatusPending {
		return ErrInviteNotPending
	}
	if i.Expired(now) {
		return ErrInviteExpired
	}
	if !strings.EqualFold(strings.TrimSpace(email), i.Email) {
		return ErrInviteEmail
	}
	return nil
}

type CreateInviteInput struct {
	TeamID    uuid.UUID
	Email     string
	Role      Role
	TokenHash string
	InvitedBy uuid.UUID
	ExpiresAt time.Time
}

// CancelInviteInput matches pending invites by id, email or both.
type CancelInviteInput struct {
	TeamID uuid.UUID
	ID     *uuid.UUID
	Email  *string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
