package handler

import (
	"time"

	"uplora/internal/audit"
	"uplora/internal/domain/team"
	"uplora/internal/domain/user"
	"uplora/internal/domain/video"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyMessage: message})
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

type VideoResponse struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"userId"`
	TeamID            *uuid.UUID       `json:"teamId"`
	Key               string           `json:"key"`
	Filename          string           `json:"filename"`
	ContentType       string           `json:"contentType"`
	SizeBytes         int64            `json:"sizeBytes"`
	Status            video.Status     `json:"status"`
	Visibility        video.Visibility `json:"visibility"`
	ThumbnailKey      *string          `json:"thumbnailKey,omitempty"`
	RequestedByUserID *uuid.UUID       `json:"requestedByUserId,omitempty"`
	ApprovedByUserID  *uuid.UUID       `json:"approvedByUserId,omitempty"`
	ApprovedAt        *time.Time       `json:"approvedAt,omitempty"`
	ScheduledFor      *time.Time       `json:"scheduledFor,omitempty"`
	UploadedAt        *time.Time       `json:"uploadedAt,omitempty"`
	PlaybackURL       string           `json:"playbackUrl,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// newVideoResponse renders v. The status is normalized again so a row
// built outside the repository never leaks a legacy alias.
func newVideoResponse(v *video.Video, playbackURL string) VideoResponse {
	return VideoResponse{
		ID:                v.ID,
		UserID:            v.UserID,
		TeamID:            v.TeamID,
		Key:               v.Key,
		Filename:          v.Filename,
		ContentType:       v.ContentType,
		SizeBytes:         v.SizeBytes,
		Status:            video.NormalizeStatus(string(v.Status)),
		Visibility:        v.Visibility,
		ThumbnailKey:      v.ThumbnailKey,
		RequestedByUserID: v.RequestedByUserID,
		ApprovedByUserID:  v.ApprovedByUserID,
		ApprovedAt:        v.ApprovedAt,
		ScheduledFor:      v.ScheduledFor,
		UploadedAt:        v.UploadedAt,
		PlaybackURL:       playbackURL,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func newVideoResponses(videos []*video.Video) []VideoResponse {
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, newVideoResponse(v, ""))
	}
	return out
}

type TeamResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Role      team.Role `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTeamResponse(t *team.Team, role team.Role) TeamResponse {
	return TeamResponse{ID: t.ID, Name: t.Name, OwnerID: t.OwnerID, Role: role, CreatedAt: t.CreatedAt}
}

type MemberResponse struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"userId"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Role      team.Role         `json:"role"`
	Status    team.MemberStatus `json:"status"`
	InvitedBy *uuid.UUID        `json:"invitedBy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func newMemberResponse(m *team.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      m.Role,
		Status:    m.Status,
		InvitedBy: m.InvitedBy,
		CreatedAt: m.CreatedAt,
	}
}

// InviteResponse never includes the token; it only travels by email.
type InviteResponse struct {
	ID         uuid.UUID         `json:"id"`
	TeamID     uuid.UUID         `json:"teamId"`
	Email      string            `json:"email"`
	Role       team.Role         `json:"role"`
	Status     team.InviteStatus `json:"status"`
	InvitedBy  uuid.UUID         `json:"invitedBy"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	AcceptedAt *time.Time        `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func newInviteResponse(inv *team.Invite) InviteResponse {
	return InviteResponse{
		ID:         inv.ID,
		TeamID:     inv.TeamID,
		Email:      inv.Email,
		Role:       inv.Role,
		Status:     inv.Status,
		InvitedBy:  inv.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedAt:  inv.CreatedAt,
	}
}

type ActivityResponse struct {
	ID           uuid.UUID          `json:"id"`
	Action       audit.Action       `json:"action"`
	Status       audit.Status       `json:"status"`
	ResourceType audit.ResourceType `json:"resourceType"`
	ResourceID   *uuid.UUID         `json:"resourceId,omitempty"`
	IPAddress    string             `json:"ipAddress,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func newActivityResponse(e *audit.Event) ActivityResponse {
	return ActivityResponse{
		ID:           e.ID,
		Action:       e.Action,
		Status:       e.Status,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}
