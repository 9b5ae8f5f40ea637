package repository

import (
	"context"
	"time"

	"uplora/internal/domain/team"
	"uplora/internal/domain/upload"
	"uplora/internal/domain/user"
	"uplora/internal/domain/video"

	"github.com/google/uuid"
)

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// TeamRepository defines team and membership data access operations
type TeamRepository interface {
	Create(ctx context.Context, input team.CreateTeamInput) (*team.Team, error)
	GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*team.Membership, error)

	AddMember(ctx context.Context, input team.AddMemberInput) (*team.Member, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*team.Member, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]*team.Member, error)
	UpdateMember(ctx context.Context, input team.UpdateMemberInput) error
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
}

// InviteRepository defines team invite data access operations
type InviteRepository interface {
	Create(ctx context.Context, input team.CreateInviteInput) (*team.Invite, error)
	HasPending(ctx context.Context, teamID uuid.UUID, email string) (bool, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*team.Invite, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*team.Invite, error)
	Cancel(ctx context.Context, input team.CancelInviteInput) (int64, error)
	Decline(ctx context.Context, tokenHash string) (*team.Invite, error)
}

// VideoRepository defines video data access operations
type VideoRepository interface {
	Create(ctx context.Context, input video.CreateVideoInput) (*video.Video, error)
	GetByID(ctx context.Context, id uuid.UUID) (*video.Video, error)
	List(ctx context.Context, filter video.ListFilter) ([]*video.Video, error)
	MarkUploaded(ctx context.Context, userID uuid.UUID, key string, sizeBytes int64) ([]*video.Video, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input video.StatusUpdate) (*video.Video, error)
	ReplaceFile(ctx context.Context, id uuid.UUID, input video.ReplaceFileInput) (*video.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteProvisional(ctx context.Context, id, userID uuid.UUID) (bool, error)
	GetProvisional(ctx context.Context, userID uuid.UUID, key string) (*video.Video, error)
	DeleteStaleProvisional(ctx context.Context, cutoff time.Time) ([]*video.Video, error)
}

// UploadLockRepository defines advisory upload lock operations
type UploadLockRepository interface {
	Create(ctx context.Context, input upload.CreateLockInput) (*upload.Lock, error)
	GetByUserAndKey(ctx context.Context, userID uuid.UUID, key string) (*upload.Lock, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*upload.Lock, error)
}

// PasswordResetRepository defines reset token operations
type PasswordResetRepository interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*user.PasswordResetToken, error)
}

// Transactor groups the multi-statement operations that must commit atomically
type Transactor interface {
	AcceptInviteTransaction(ctx context.Context, tokenHash string, userID uuid.UUID, email string, now time.Time) (*team.Invite, error)
	ResetPasswordTransaction(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
}
