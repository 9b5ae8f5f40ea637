package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Team is a shared workspace. The owner is never stored as a Member.
type Team struct {
	ID        uuid.UUID
	Name      string
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateTeamInput struct {
	Name    string
	OwnerID uuid.UUID
}

// Membership is a team as seen by one user, with that user's effective role.
type Membership struct {
	Team Team
	Role Role
}

type Member struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	UserID    uuid.UUID
	Email     string
	Name      string
	Role      Role
	Status    MemberStatus
	InvitedBy *uuid.UUID
	CreatedAt time.Time
}

func (m *Member) Active() bool {
	return m.Status == MemberStatusActive
}

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleEditor  Role = "EDITOR"
)

const (
	errInvalidRoleFmt         = "invalid role: %s"
	errInvalidMemberStatusFmt = "invalid member status: %s"
)

// ParseRole accepts any casing. OWNER is not a member role and is rejected.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if err := r.ValidateMemberRole(); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateMemberRole checks r is assignable to a team_members row.
func (r Role) ValidateMemberRole() error {
	switch r {
	case RoleAdmin, RoleManager, RoleEditor:
		return nil
	default:
		return fmt.Errorf(errInvalidRoleFmt, r)
	}
}

func (r Role) String() string {
	return string(r)
}

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusDisabled MemberStatus = "DISABLED"
)

func ParseMemberStatus(raw string) (MemberStatus, error) {
	s := MemberStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case MemberStatusActive, MemberStatusDisabled:
		return s, nil
	default:
		return "", fmt.Errorf(errInvalidMemberStatusFmt, raw)
	}
}

type AddMemberInput struct {
	TeamID    uuid.UUID
	UserID    uuid.UUID
	Role      Role
	InvitedBy *uuid.UUID
}

type UpdateMemberInput struct {
	TeamID uuid.UUID
	UserID uuid.UUID
	Role   *Role
	Status *MemberStatus
}
