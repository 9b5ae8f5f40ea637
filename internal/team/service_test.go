package team

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"uplora/internal/audit"
	"uplora/internal/config"
	domain "uplora/internal/domain/team"
	"uplora/internal/domain/user"
	"uplora/internal/notify"
	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"
	"uplora/internal/realtime"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memTeams struct {
	mu      sync.Mutex
	teams   map[uuid.UUID]*domain.Team
	members map[uuid.UUID]map[uuid.UUID]*domain.Member
}

func newMemTeams() *memTeams {
	return &memTeams{teams: map[uuid.UUID]*domain.Team{}, members: map[uuid.UUID]map[uuid.UUID]*domain.Member{}}
}

func (m *memTeams) Create(_ context.Context, in domain.CreateTeamInput) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &domain.Team{ID: uuid.New(), Name: in.Name, OwnerID: in.OwnerID}
	m.teams[t.ID] = t
	return t, nil
}

func (m *memTeams) GetByID(_ context.Context, id uuid.UUID) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFound("team not found")
}

func (m *memTeams) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Membership
	for _, t := range m.teams {
		if t.OwnerID == userID {
			out = append(out, &domain.Membership{Team: *t, Role: domain.RoleOwner})
		} else if mem, ok := m.members[t.ID][userID]; ok && mem.Active() {
			out = append(out, &domain.Membership{Team: *t, Role: mem.Role})
		}
	}
	return out, nil
}

func (m *memTeams) add(teamID, userID uuid.UUID, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[teamID] == nil {
		m.members[teamID] = map[uuid.UUID]*domain.Member{}
	}
	m.members[teamID][userID] = &domain.Member{ID: uuid.New(), TeamID: teamID, UserID: userID, Role: role, Status: domain.MemberStatusActive}
}

func (m *memTeams) GetMember(_ context.Context, teamID, userID uuid.UUID) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[teamID][userID]; ok {
		cp := *mem
		return &cp, nil
	}
	return nil, apperrors.NotFound("member not found")
}

func (m *memTeams) ListMembers(_ context.Context, teamID uuid.UUID) ([]*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Member
	for _, mem := range m.members[teamID] {
		out = append(out, mem)
	}
	return out, nil
}

func (m *memTeams) UpdateMember(_ context.Context, in domain.UpdateMemberInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[in.TeamID][in.UserID]
	if !ok {
		return apperrors.NotFound("member not found")
	}
	if in.Role != nil {
		mem.Role = *in.Role
	}
	if in.Status != nil {
		mem.Status = *in.Status
	}
	return nil
}

func (m *memTeams) RemoveMember(_ context.Context, teamID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[teamID][userID]; !ok {
		return apperrors.NotFound("member not found")
	}
	delete(m.members[teamID], userID)
	return nil
}

type memInvites struct {
	mu      sync.Mutex
	invites []*domain.Invite
}

func (m *memInvites) Create(_ context.Context, in domain.CreateInviteInput) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := &domain.Invite{
		ID: uuid.New(), TeamID: in.TeamID, Email: in.Email, Role: in.Role, TokenHash: in.TokenHash,
		Status: domain.InviteStatusPending, InvitedBy: in.InvitedBy, ExpiresAt: in.ExpiresAt,
	}
	m.invites = append(m.invites, inv)
	return inv, nil
}

func (m *memInvites) HasPending(_ context.Context, teamID uuid.UUID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.TeamID == teamID && strings.EqualFold(inv.Email, email) && inv.Status == domain.InviteStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvites) ListByTeam(_ context.Context, teamID uuid.UUID) ([]*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Invite
	for _, inv := range m.invites {
		if inv.TeamID == teamID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvites) GetByTokenHash(_ context.Context, hash string) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.TokenHash == hash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("invite not found")
}

func (m *memInvites) Cancel(_ context.Context, in domain.CancelInviteInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inv := range m.invites {
		if inv.TeamID != in.TeamID || inv.Status != domain.InviteStatusPending {
			continue
		}
		if in.ID != nil && inv.ID != *in.ID {
			continue
		}
		if in.Email != nil && !strings.EqualFold(inv.Email, *in.Email) {
			continue
		}
		inv.Status = domain.InviteStatusRejected
		n++
	}
	return n, nil
}

func (m *memInvites) Decline(_ context.Context, hash string) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.TokenHash == hash && inv.Status == domain.InviteStatusPending {
			inv.Status = domain.InviteStatusRejected
			return inv, nil
		}
	}
	return nil, apperrors.NotFound("invite not found")
}

type memUsers struct {
	users map[uuid.UUID]*user.User
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

// memTx mirrors the accept transaction against the in-memory stores.
type memTx struct {
	teams   *memTeams
	invites *memInvites
}

func (m *memTx) AcceptInviteTransaction(ctx context.Context, hash string, userID uuid.UUID, email string, now time.Time) (*domain.Invite, error) {
	m.invites.mu.Lock()
	defer m.invites.mu.Unlock()
	for _, inv := range m.invites.invites {
		if inv.TokenHash != hash {
			continue
		}
		if err := inv.CheckAcceptable(email, now); err != nil {
			switch err {
			case domain.ErrInviteNotPending:
				return nil, apperrors.Conflict("invite has already been used or cancelled")
			case domain.ErrInviteExpired:
				return nil, apperrors.Expired("invite has expired")
			default:
				return nil, apperrors.Forbidden("invite was sent to a different email address")
			}
		}
		m.teams.add(inv.TeamID, userID, inv.Role)
		inv.Status = domain.InviteStatusAccepted
		inv.AcceptedAt = &now
		return inv, nil
	}
	return nil, apperrors.NotFound("invite not found")
}

type recorder struct {
	mu      sync.Mutex
	events  []realtime.Event
	audits  []*audit.Event
	invites []notify.TeamInvite
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Record(_ context.Context, e *audit.Event) {
	r.mu.Lock()
	r.audits = append(r.audits, e)
	r.mu.Unlock()
}

func (r *recorder) TeamInvite(_ context.Context, msg notify.TeamInvite) error {
	r.invites = append(r.invites, msg)
	return nil
}

func (r *recorder) VideoApproved(context.Context, notify.VideoApproved) error         { return nil }
func (r *recorder) ApprovalRequested(context.Context, notify.ApprovalRequested) error { return nil }
func (r *recorder) PasswordReset(context.Context, notify.PasswordReset) error         { return nil }

type fixture struct {
	svc     *Service
	teams   *memTeams
	invites *memInvites
	users   *memUsers
	rec     *recorder
	owner   *user.User
	team    *domain.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		teams:   newMemTeams(),
		invites: &memInvites{},
		users:   &memUsers{users: map[uuid.UUID]*user.User{}},
		rec:     &recorder{},
	}
	f.owner = f.user("owner@example.com", "Olivia")

	f.svc = NewService(Dependencies{
		Teams:    f.teams,
		Invites:  f.invites,
		Users:    f.users,
		Tx:       &memTx{teams: f.teams, invites: f.invites},
		Roles:    rbac.MustNew(presets.Uplora()),
		Notifier: f.rec,
		Events:   f.rec,
		Audit:    f.rec,
		App:      config.AppConfig{Name: "Uplora", InviteExpiry: 7 * 24 * time.Hour},
		Logger:   zap.NewNop(),
	})

	tm, err := f.svc.Create(context.Background(), f.owner.ID, "  Studio ")
	require.NoError(t, err)
	f.team = tm
	return f
}

func (f *fixture) user(email, name string) *user.User {
	u := &user.User{ID: uuid.New(), Email: email, Name: name}
	f.users.users[u.ID] = u
	return u
}

func (f *fixture) ownerActor() Actor {
	return Actor{UserID: f.owner.ID, Role: domain.RoleOwner}
}

func TestCreateTrimsName(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Studio", f.team.Name)
	assert.Equal(t, f.owner.ID, f.team.OwnerID)

	teams, err := f.svc.List(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, domain.RoleOwner, teams[0].Role)
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	invitee := f.user("new@example.com", "Nia")

	res, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: " New@Example.com ", Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", res.Invite.Email)
	assert.Equal(t, token.Hash(res.Token), res.Invite.TokenHash)
	assert.NotEqual(t, res.Token, res.Invite.TokenHash)

	require.Len(t, f.rec.invites, 1)
	assert.Equal(t, res.Token, f.rec.invites[0].Token)
	assert.Equal(t, "Studio", f.rec.invites[0].TeamName)

	inv, err := f.svc.AcceptInvite(context.Background(), invitee.ID, res.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteStatusAccepted, inv.Status)

	member, err := f.teams.GetMember(context.Background(), f.team.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, member.Role)

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, realtime.EventInviteAccepted, f.rec.events[0].Type)
	assert.Equal(t, f.team.ID, *f.rec.events[0].TeamID)

	_, err = f.svc.AcceptInvite(context.Background(), invitee.ID, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAcceptRequiresInvitedEmail(t *testing.T) {
	f := newFixture(t)
	stranger := f.user("stranger@example.com", "")

	res, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "new@example.com", Role: "EDITOR"})
	require.NoError(t, err)

	_, err = f.svc.AcceptInvite(context.Background(), stranger.ID, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestManagerCannotInviteAdmin(t *testing.T) {
	f := newFixture(t)
	manager := f.user("m@example.com", "Max")
	f.teams.add(f.team.ID, manager.ID, domain.RoleManager)

	actor := Actor{UserID: manager.ID, Role: domain.RoleManager}
	_, err := f.svc.Invite(context.Background(), actor, f.team.ID, InviteInput{Email: "a@example.com", Role: "ADMIN"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.ErrorIs(t, err, rbac.ErrDenied)

	_, err = f.svc.Invite(context.Background(), actor, f.team.ID, InviteInput{Email: "a@example.com", Role: "MANAGER"})
	assert.NoError(t, err)
}

// editorlessRanker is the Uplora model with EDITOR removed from the
// configured roles.
type editorlessRanker struct {
	*rbac.Checker
}

func (r editorlessRanker) ValidateRole(role string) (rbac.Role, error) {
	if role == string(presets.RoleEditor) {
		return "", rbac.ErrInvalidRole
	}
	return r.Checker.ValidateRole(role)
}

func TestInviteRoleMustBeConfigured(t *testing.T) {
	f := newFixture(t)
	f.svc.roles = editorlessRanker{rbac.MustNew(presets.Uplora())}

	_, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "e@example.com", Role: "editor"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "e@example.com", Role: "manager"})
	assert.NoError(t, err)
}

func TestInviteRejectsOwnerRoleAndDuplicates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "x@example.com", Role: "OWNER"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "x@example.com", Role: "EDITOR"})
	require.NoError(t, err)
	_, err = f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "X@example.com", Role: "EDITOR"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "owner@example.com", Role: "EDITOR"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCancelInvite(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "x@example.com", Role: "EDITOR"})
	require.NoError(t, err)

	_, err = f.svc.CancelInvite(context.Background(), f.owner.ID, f.team.ID, CancelInviteInput{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	blank := "  "
	_, err = f.svc.CancelInvite(context.Background(), f.owner.ID, f.team.ID, CancelInviteInput{Email: &blank})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	email := "X@Example.com"
	n, err := f.svc.CancelInvite(context.Background(), f.owner.ID, f.team.ID, CancelInviteInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.CancelInvite(context.Background(), f.owner.ID, f.team.ID, CancelInviteInput{ID: &res.Invite.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeclineInvite(t *testing.T) {
	f := newFixture(t)
	invitee := f.user("new@example.com", "")
	res, err := f.svc.Invite(context.Background(), f.ownerActor(), f.team.ID, InviteInput{Email: "new@example.com", Role: "EDITOR"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeclineInvite(context.Background(), invitee.ID, res.Token))
	assert.ErrorIs(t, f.svc.DeclineInvite(context.Background(), invitee.ID, res.Token), apperrors.ErrConflict)

	_, err = f.svc.AcceptInvite(context.Background(), invitee.ID, res.Token)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateMemberRespectsRank(t *testing.T) {
	f := newFixture(t)
	admin := f.user("admin@example.com", "")
	manager := f.user("manager@example.com", "")
	f.teams.add(f.team.ID, admin.ID, domain.RoleAdmin)
	f.teams.add(f.team.ID, manager.ID, domain.RoleManager)

	promote := "ADMIN"
	got, err := f.svc.UpdateMember(context.Background(), Actor{UserID: admin.ID, Role: domain.RoleAdmin}, f.team.ID, manager.ID, UpdateMemberInput{Role: &promote})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	demote := "EDITOR"
	_, err = f.svc.UpdateMember(context.Background(), Actor{UserID: manager.ID, Role: domain.RoleManager}, f.team.ID, admin.ID, UpdateMemberInput{Role: &demote})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	disabled := "disabled"
	got, err = f.svc.UpdateMember(context.Background(), f.ownerActor(), f.team.ID, admin.ID, UpdateMemberInput{Status: &disabled})
	require.NoError(t, err)
	assert.False(t, got.Active())

	_, err = f.svc.UpdateMember(context.Background(), f.ownerActor(), f.team.ID, admin.ID, UpdateMemberInput{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestOwnerCannotBeRemovedOrLeave(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RemoveMember(context.Background(), f.ownerActor(), f.team.ID, f.owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.svc.Leave(context.Background(), f.owner.ID, f.team.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRemoveAndLeave(t *testing.T) {
	f := newFixture(t)
	a := f.user("a@example.com", "")
	b := f.user("b@example.com", "")
	f.teams.add(f.team.ID, a.ID, domain.RoleEditor)
	f.teams.add(f.team.ID, b.ID, domain.RoleEditor)

	require.NoError(t, f.svc.RemoveMember(context.Background(), f.ownerActor(), f.team.ID, a.ID))
	require.NoError(t, f.svc.Leave(context.Background(), b.ID, f.team.ID))

	members, err := f.svc.Members(context.Background(), f.team.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}
