package handler

import (
	"context"
	"time"

	"uplora/internal/account"
	"uplora/internal/audit"
	domainteam "uplora/internal/domain/team"
	"uplora/internal/domain/user"
	"uplora/internal/domain/video"
	"uplora/internal/realtime"
	"uplora/internal/team"
	"uplora/internal/upload"
	videosvc "uplora/internal/video"

	"github.com/google/uuid"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// UploadHandler interfaces
type UploadService interface {
	Init(ctx context.Context, userID uuid.UUID, in upload.InitInput) (*upload.InitResult, error)
	Sign(ctx context.Context, userID uuid.UUID, in upload.SignInput) (string, error)
	Complete(ctx context.Context, userID uuid.UUID, in upload.CompleteInput) (*upload.CompleteResult, error)
	PutComplete(ctx context.Context, userID uuid.UUID, key string) (*upload.CompleteResult, error)
	Cancel(ctx context.Context, userID uuid.UUID, in upload.CancelInput) error
	Release(ctx context.Context, userID uuid.UUID) int64
	ReapStaleLocks(ctx context.Context, olderThan time.Duration) (int, error)
	StaleLockAge() time.Duration
}

// VideoHandler interfaces
type VideoService interface {
	Get(ctx context.Context, v *video.Video) (*videosvc.View, error)
	List(ctx context.Context, userID uuid.UUID, in videosvc.ListInput) ([]*videosvc.View, error)
	RequestApproval(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error)
	Approve(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error)
	Reject(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error)
	Delete(ctx context.Context, actorID uuid.UUID, v *video.Video) error
	ReplacePresign(ctx context.Context, v *video.Video, in videosvc.ReplacePresignInput) (*videosvc.ReplaceTarget, error)
	ReplaceComplete(ctx context.Context, actorID uuid.UUID, v *video.Video, in videosvc.ReplaceCompleteInput) (*video.Video, error)
}

// TeamHandler interfaces
type TeamService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*domainteam.Team, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domainteam.Membership, error)
	Members(ctx context.Context, teamID uuid.UUID) ([]*domainteam.Member, error)
	UpdateMember(ctx context.Context, actor team.Actor, teamID, userID uuid.UUID, in team.UpdateMemberInput) (*domainteam.Member, error)
	RemoveMember(ctx context.Context, actor team.Actor, teamID, userID uuid.UUID) error
	Leave(ctx context.Context, userID, teamID uuid.UUID) error
	Invite(ctx context.Context, actor team.Actor, teamID uuid.UUID, in team.InviteInput) (*team.InviteResult, error)
	Invites(ctx context.Context, teamID uuid.UUID) ([]*domainteam.Invite, error)
	CancelInvite(ctx context.Context, actorID, teamID uuid.UUID, in team.CancelInviteInput) (int64, error)
	AcceptInvite(ctx context.Context, userID uuid.UUID, rawToken string) (*domainteam.Invite, error)
	DeclineInvite(ctx context.Context, userID uuid.UUID, rawToken string) error
}

// AuthHandler interfaces
type AccountService interface {
	Signup(ctx context.Context, in account.SignupInput) (*account.Session, error)
	Login(ctx context.Context, email, pass string) (*account.Session, error)
	ForgotPassword(ctx context.Context, email string)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*user.User, error)
	Activity(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*audit.Event, error)
}

// EventsHandler interfaces
type Subscriber interface {
	Subscribe(filter realtime.Filter, guard func(realtime.Event) bool) *realtime.Subscription
}

type TeamRoleResolver interface {
	TeamRole(ctx context.Context, userID, teamID uuid.UUID) (domainteam.Role, error)
}

type TeamLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domainteam.Membership, error)
}
