package auth

import (
	"context"
	"errors"

	"uplora/internal/audit"
	"uplora/internal/domain/team"
	"uplora/internal/domain/video"
	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"
	"uplora/internal/repository"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Authorizer is the part of the access resolver the middleware needs.
type Authorizer interface {
	AuthorizeTeam(ctx context.Context, userID, teamID uuid.UUID, resource rbac.Resource, action rbac.Action) (team.Role, error)
	AuthorizeVideo(ctx context.Context, userID uuid.UUID, v *video.Video, action rbac.Action) (team.Role, error)
}

// DenialRecorder receives every request the permission model refused.
type DenialRecorder interface {
	Denied(ctx context.Context, event *audit.Event, err error)
}

type AccessMiddleware struct {
	authz   Authorizer
	videos  repository.VideoReader
	denials DenialRecorder
}

// NewAccessMiddleware builds the team and video guards. denials may be nil.
func NewAccessMiddleware(authz Authorizer, videos repository.VideoReader, denials DenialRecorder) *AccessMiddleware {
	return &AccessMiddleware{authz: authz, videos: videos, denials: denials}
}

// recordDenial audits FORBIDDEN outcomes only; hidden resources stay
// indistinguishable from missing ones.
func (m *AccessMiddleware) recordDenial(ctx context.Context, userID uuid.UUID, resource rbac.Resource, id uuid.UUID, action rbac.Action, err error) {
	if m.denials == nil || !errors.Is(err, apperrors.ErrForbidden) {
		return
	}
	m.denials.Denied(ctx, &audit.Event{
		ActorID:      &userID,
		ResourceType: audit.ResourceType(resource),
		ResourceID:   &id,
		Action:       audit.Action(action),
	}, err)
}

// RequireTeamAction guards /teams/:teamId routes. Must run after RequireJWT.
func (m *AccessMiddleware) RequireTeamAction(resource rbac.Resource, action rbac.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := GetUserID(c)
			if err != nil {
				return err
			}

			raw := c.Param(paramTeamID)
			if raw == "" {
				return apperrors.Validation(msgTeamIDRequired)
			}
			teamID, err := uuid.Parse(raw)
			if err != nil {
				return apperrors.Validation(msgInvalidTeamID)
			}

			ctx := c.Request().Context()
			role, err := m.authz.AuthorizeTeam(ctx, userID, teamID, resource, action)
			if err != nil {
				m.recordDenial(ctx, userID, resource, teamID, action, err)
				return err
			}

			c.Set(ContextKeyTeamID, teamID)
			c.Set(ContextKeyTeamRole, role)
			return next(c)
		}
	}
}

// RequireVideoAction loads the video named by :id, resolves the caller's
// role on it and stores both in the context for the handler.
func (m *AccessMiddleware) RequireVideoAction(action rbac.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := GetUserID(c)
			if err != nil {
				return err
			}

			raw := c.Param(paramVideoID)
			if raw == "" {
				return apperrors.Validation(msgVideoIDRequired)
			}
			videoID, err := uuid.Parse(raw)
			if err != nil {
				return apperrors.Validation(msgInvalidVideoID)
			}

			ctx := c.Request().Context()
			v, err := m.videos.GetByID(ctx, videoID)
			if err != nil {
				return err
			}

			role, err := m.authz.AuthorizeVideo(ctx, userID, v, action)
			if err != nil {
				m.recordDenial(ctx, userID, presets.ResourceVideo, v.ID, action, err)
				return err
			}

			c.Set(ContextKeyVideo, v)
			c.Set(ContextKeyTeamRole, role)
			if v.TeamID != nil {
				c.Set(ContextKeyTeamID, *v.TeamID)
			}
			return next(c)
		}
	}
}

func GetVideo(c echo.Context) (*video.Video, error) {
	v, ok := c.Get(ContextKeyVideo).(*video.Video)
	if !ok || v == nil {
		return nil, apperrors.Internal(msgVideoNotInContext, nil)
	}
	return v, nil
}

func GetTeamID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyTeamID).(uuid.UUID)
	return id, ok
}

func GetTeamRole(c echo.Context) team.Role {
	role, _ := c.Get(ContextKeyTeamRole).(team.Role)
	return role
}
