// Package team manages team membership and the invite lifecycle.
package team

import (
	"context"
	"errors"
	"strings"
	"time"

	"uplora/internal/audit"
	"uplora/internal/config"
	domain "uplora/internal/domain/team"
	"uplora/internal/domain/user"
	"uplora/internal/notify"
	"uplora/internal/rbac"
	"uplora/internal/realtime"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/token"
	"uplora/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TeamStore interface {
	Create(ctx context.Context, input domain.CreateTeamInput) (*domain.Team, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.Member, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.Member, error)
	UpdateMember(ctx context.Context, input domain.UpdateMemberInput) error
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
}

type InviteStore interface {
	Create(ctx context.Context, input domain.CreateInviteInput) (*domain.Invite, error)
	HasPending(ctx context.Context, teamID uuid.UUID, email string) (bool, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*domain.Invite, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invite, error)
	Cancel(ctx context.Context, input domain.CancelInviteInput) (int64, error)
	Decline(ctx context.Context, tokenHash string) (*domain.Invite, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// InviteAccepter runs the accept transaction.
type InviteAccepter interface {
	AcceptInviteTransaction(ctx context.Context, tokenHash string, userID uuid.UUID, email string, now time.Time) (*domain.Invite, error)
}

// RoleRanker knows the configured roles and their levels; *rbac.Checker
// satisfies it.
type RoleRanker interface {
	ValidateRole(role string) (rbac.Role, error)
	RequireRole(role, minRole rbac.Role) error
}

type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

type Dependencies struct {
	Teams    TeamStore
	Invites  InviteStore
	Users    UserStore
	Tx       InviteAccepter
	Roles    RoleRanker
	Notifier notify.Notifier
	Events   realtime.Publisher
	Audit    Auditor
	App      config.AppConfig
	Logger   *zap.Logger
}

type Service struct {
	teams    TeamStore
	invites  InviteStore
	users    UserStore
	tx       InviteAccepter
	roles    RoleRanker
	notifier notify.Notifier
	events   realtime.Publisher
	audit    Auditor
	app      config.AppConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		teams:    deps.Teams,
		invites:  deps.Invites,
		users:    deps.Users,
		tx:       deps.Tx,
		roles:    deps.Roles,
		notifier: deps.Notifier,
		events:   deps.Events,
		audit:    deps.Audit,
		app:      deps.App,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Create makes ownerID the owner of a new team.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if err := validator.TeamName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	t, err := s.teams.Create(ctx, domain.CreateTeamInput{Name: name, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ownerID, audit.ResourceTypeTeam, t.ID, audit.ActionCreate, map[string]any{"name": t.Name})
	return t, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	return s.teams.ListForUser(ctx, userID)
}

func (s *Service) Members(ctx context.Context, teamID uuid.UUID) ([]*domain.Member, error) {
	return s.teams.ListMembers(ctx, teamID)
}

// Actor is the caller and the role they hold on the team being changed.
type Actor struct {
	UserID uuid.UUID
	Role   domain.Role
}

type UpdateMemberInput struct {
	Role   *string
	Status *string
}

// UpdateMember changes a member's role or status. Actors may only touch
// members at or below their own level and may not grant a higher role.
func (s *Service) UpdateMember(ctx context.Context, actor Actor, teamID, userID uuid.UUID, in UpdateMemberInput) (*domain.Member, error) {
	if in.Role == nil && in.Status == nil {
		return nil, apperrors.Validation(msgNothingToUpdate)
	}

	update := domain.UpdateMemberInput{TeamID: teamID, UserID: userID}
	if in.Role != nil {
		role, err := s.parseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		if err := s.requireRank(actor.Role, role, msgRoleTooHigh); err != nil {
			return nil, err
		}
		update.Role = &role
	}
	if in.Status != nil {
		status, err := domain.ParseMemberStatus(*in.Status)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		update.Status = &status
	}

	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRank(actor.Role, target.Role, msgMemberOutranks); err != nil {
		return nil, err
	}

	if err := s.teams.UpdateMember(ctx, update); err != nil {
		return nil, err
	}

	meta := map[string]any{"user_id": userID.String()}
	if update.Role != nil {
		meta["role"] = *update.Role
	}
	if update.Status != nil {
		meta["status"] = *update.Status
	}
	s.record(ctx, actor.UserID, audit.ResourceTypeMember, target.ID, audit.ActionUpdate, meta)

	return s.teams.GetMember(ctx, teamID, userID)
}

// RemoveMember deletes a membership. The owner has no membership row and
// cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actor Actor, teamID, userID uuid.UUID) error {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return apperrors.Validation(msgOwnerNotRemovable)
	}

	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if err := s.requireRank(actor.Role, target.Role, msgMemberOutranks); err != nil {
		return err
	}

	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}

	s.record(ctx, actor.UserID, audit.ResourceTypeMember, target.ID, audit.ActionDelete, map[string]any{"user_id": userID.String()})
	return nil
}

func (s *Service) Leave(ctx context.Context, userID, teamID uuid.UUID) error {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return apperrors.Validation(msgOwnerCannotLeave)
	}

	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}

	s.record(ctx, userID, audit.ResourceTypeTeam, teamID, audit.ActionLeave, nil)
	return nil
}

type InviteInput struct {
	Email string
	Role  string
}

// InviteResult carries the raw token. It is returned once and never stored.
type InviteResult struct {
	Invite *domain.Invite
	Token  string
}

func (s *Service) Invite(ctx context.Context, actor Actor, teamID uuid.UUID, in InviteInput) (*InviteResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := validator.Email(email); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	role, err := s.parseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if err := s.requireRank(actor.Role, role, msgRoleTooHigh); err != nil {
		return nil, err
	}

	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotMember(ctx, t, email); err != nil {
		return nil, err
	}

	pending, err := s.invites.HasPending(ctx, teamID, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperrors.Conflict(msgInvitePending)
	}

	raw, err := token.GenerateURLToken()
	if err != nil {
		return nil, apperrors.Internal(msgTokenFailed, err)
	}

	inv, err := s.invites.Create(ctx, domain.CreateInviteInput{
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		TokenHash: token.Hash(raw),
		InvitedBy: actor.UserID,
		ExpiresAt: s.now().Add(s.app.InviteExpiry),
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor.UserID, audit.ResourceTypeInvite, inv.ID, audit.ActionCreate, map[string]any{"email": email, "role": role})

	err = s.notifier.TeamInvite(ctx, notify.TeamInvite{
		To:          email,
		TeamName:    t.Name,
		InviterName: s.displayName(ctx, actor.UserID),
		Role:        string(role),
		Token:       raw,
		ExpiresIn:   s.app.InviteExpiry,
	})
	if err != nil {
		s.logger.Warn("invite email failed", zap.String("invite_id", inv.ID.String()), zap.Error(err))
	}

	return &InviteResult{Invite: inv, Token: raw}, nil
}

func (s *Service) Invites(ctx context.Context, teamID uuid.UUID) ([]*domain.Invite, error) {
	return s.invites.ListByTeam(ctx, teamID)
}

type CancelInviteInput struct {
	ID    *uuid.UUID
	Email *string
}

// CancelInvite rejects every pending invite matching the id and/or email.
func (s *Service) CancelInvite(ctx context.Context, actorID, teamID uuid.UUID, in CancelInviteInput) (int64, error) {
	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if email == "" {
			in.Email = nil
		} else {
			in.Email = &email
		}
	}
	if in.ID == nil && in.Email == nil {
		return 0, apperrors.Validation(msgInviteTargetRequired)
	}

	n, err := s.invites.Cancel(ctx, domain.CancelInviteInput{TeamID: teamID, ID: in.ID, Email: in.Email})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperrors.NotFound(msgNoPendingInvites)
	}

	meta := map[string]any{"count": n}
	if in.Email != nil {
		meta["email"] = *in.Email
	}
	s.record(ctx, actorID, audit.ResourceTypeInvite, teamID, audit.ActionCancel, meta)
	return n, nil
}

// AcceptInvite joins the caller to the invite's team. The email compared
// against the invite is the one on file, never one supplied by the client.
func (s *Service) AcceptInvite(ctx context.Context, userID uuid.UUID, rawToken string) (*domain.Invite, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.Validation(msgTokenRequired)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	inv, err := s.tx.AcceptInviteTransaction(ctx, token.Hash(rawToken), userID, u.Email, s.now())
	if err != nil {
		return nil, err
	}

	teamID := inv.TeamID
	s.events.Publish(realtime.Event{
		Type:    realtime.EventInviteAccepted,
		TeamID:  &teamID,
		Payload: map[string]any{"inviteId": inv.ID, "userId": userID, "role": inv.Role},
	})
	s.record(ctx, userID, audit.ResourceTypeInvite, inv.ID, audit.ActionAccept, map[string]any{"team_id": teamID.String()})
	return inv, nil
}

func (s *Service) DeclineInvite(ctx context.Context, userID uuid.UUID, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return apperrors.Validation(msgTokenRequired)
	}
	hash := token.Hash(rawToken)

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	inv, err := s.invites.GetByTokenHash(ctx, hash)
	if err != nil {
		return err
	}
	if err := inv.CheckAcceptable(u.Email, s.now()); err != nil {
		switch {
		case errors.Is(err, domain.ErrInviteEmail):
			return apperrors.Forbidden(msgInviteWrongEmail)
		case errors.Is(err, domain.ErrInviteNotPending):
			return apperrors.Conflict(msgInviteNotPending)
		}
		// expired invites may still be declined
	}

	if _, err := s.invites.Decline(ctx, hash); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Conflict(msgInviteNotPending)
		}
		return err
	}

	s.record(ctx, userID, audit.ResourceTypeInvite, inv.ID, audit.ActionDecline, nil)
	return nil
}

func (s *Service) checkNotMember(ctx context.Context, t *domain.Team, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.ID == t.OwnerID {
		return apperrors.Conflict(msgAlreadyMember)
	}

	m, err := s.teams.GetMember(ctx, t.ID, u.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if m.Active() {
		return apperrors.Conflict(msgAlreadyMember)
	}
	return nil
}

// parseRole accepts an assignable member role that the permission model
// also knows about.
func (s *Service) parseRole(raw string) (domain.Role, error) {
	role, err := domain.ParseRole(raw)
	if err != nil {
		return "", apperrors.Validation(err.Error())
	}
	if _, err := s.roles.ValidateRole(string(role)); err != nil {
		return "", apperrors.Validation(err.Error())
	}
	return role, nil
}

// requireRank fails with FORBIDDEN unless actor is at least target.
func (s *Service) requireRank(actor, target domain.Role, msg string) error {
	if err := s.roles.RequireRole(rbac.Role(actor), rbac.Role(target)); err != nil {
		return &apperrors.AppError{Code: apperrors.CodeForbidden, Message: msg, Err: errors.Join(apperrors.ErrForbidden, err)}
	}
	return nil
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, rt audit.ResourceType, id uuid.UUID, action audit.Action, meta map[string]any) {
	s.audit.Record(ctx, &audit.Event{
		ActorID:      &actorID,
		ResourceType: rt,
		ResourceID:   &id,
		Action:       action,
		Metadata:     meta,
	})
}
