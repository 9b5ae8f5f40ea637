package video

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPrivate  Visibility = "PRIVATE"
	VisibilityUnlisted Visibility = "UNLISTED"
	VisibilityPublic   Visibility = "PUBLIC"
)

// Video is one uploaded object plus its approval state. TeamID nil means
// the video lives in the uploader's personal workspace.
type Video struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	TeamID            *uuid.UUID
	Key               string
	Filename          string
	ContentType       string
	SizeBytes         int64
	Status            Status
	ThumbnailKey      *string
	Visibility        Visibility
	RequestedByUserID *uuid.UUID
	ApprovedByUserID  *uuid.UUID
	ApprovedAt        *time.Time
	ScheduledFor      *time.Time
	UploadedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (v *Video) IsPersonal() bool {
	return v.TeamID == nil
}

func (v *Video) Uploaded() bool {
	return v.UploadedAt != nil
}

type CreateVideoInput struct {
	UserID      uuid.UUID
	TeamID      *uuid.UUID
	Key         string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// ListFilter selects either a team's videos or a user's personal videos.
type ListFilter struct {
	TeamID *uuid.UUID
	UserID uuid.UUID
	Limit  int
	Offset int
}

type ReplaceFileInput struct {
	Key         string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// StatusUpdate records a status change together with the actor fields the
// approval workflow tracks. Nil pointers leave the column unchanged.
type StatusUpdate struct {
	Status            Status
	RequestedByUserID *uuid.UUID
	ApprovedByUserID  *uuid.UUID
	ApprovedAt        *time.Time
}
