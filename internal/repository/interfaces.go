package repository

import (
	"context"

	"uplora/internal/domain/team"
	"uplora/internal/domain/video"

	"github.com/google/uuid"
)

// Narrow read-only views used by the access resolver and auth middleware.

type TeamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*team.Member, error)
}

type VideoReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*video.Video, error)
}
