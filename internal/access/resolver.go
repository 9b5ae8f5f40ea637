// Package access resolves a caller's effective role on a team or video and
// checks it against the team permission model.
//
// Anything the caller cannot see is reported as not found, so a hidden
// team or video is indistinguishable from a missing one.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"uplora/internal/domain/team"
	"uplora/internal/domain/video"
	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"
	"uplora/internal/repository"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
)

const (
	msgTeamNotFound  = "team not found"
	msgVideoNotFound = "video not found"
	msgForbiddenFmt  = "role %s cannot %s this %s"
	msgAllowedFmt    = "%s (allowed: %s)"
)

// ErrNoAccess marks a team that exists but has no active membership for
// the caller. It is reported as NOT_FOUND unless a caller opts to
// surface it as forbidden.
var ErrNoAccess = errors.New("no access to team")

type Resolver struct {
	teams   repository.TeamReader
	checker *rbac.Checker
}

func NewResolver(teams repository.TeamReader) *Resolver {
	return &Resolver{
		teams:   teams,
		checker: rbac.MustNew(presets.Uplora()),
	}
}

func (r *Resolver) Checker() *rbac.Checker {
	return r.checker
}

// TeamRole returns OWNER for the team owner and the member role for an
// ACTIVE member. Disabled members and strangers get ErrNoAccess.
func (r *Resolver) TeamRole(ctx context.Context, userID, teamID uuid.UUID) (team.Role, error) {
	t, err := r.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.NotFound(msgTeamNotFound)
		}
		return "", err
	}

	if t.OwnerID == userID {
		return team.RoleOwner, nil
	}

	member, err := r.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", noAccess()
		}
		return "", err
	}

	if !member.Active() {
		return "", noAccess()
	}

	return member.Role, nil
}

// VideoRole resolves the caller's role on v. A personal video is visible
// only to its uploader, who acts as its owner.
func (r *Resolver) VideoRole(ctx context.Context, userID uuid.UUID, v *video.Video) (team.Role, error) {
	if v.IsPersonal() {
		if v.UserID == userID {
			return team.RoleOwner, nil
		}
		return "", apperrors.NotFound(msgVideoNotFound)
	}

	role, err := r.TeamRole(ctx, userID, *v.TeamID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, ErrNoAccess) {
			return "", apperrors.NotFound(msgVideoNotFound)
		}
		return "", err
	}

	return role, nil
}

// AuthorizeTeam resolves the caller's team role and requires it to allow
// action on resource. Hidden teams give 404, insufficient roles 403.
func (r *Resolver) AuthorizeTeam(ctx context.Context, userID, teamID uuid.UUID, resource rbac.Resource, action rbac.Action) (team.Role, error) {
	role, err := r.TeamRole(ctx, userID, teamID)
	if err != nil {
		return "", err
	}
	if err := r.Authorize(role, resource, action); err != nil {
		return role, err
	}
	return role, nil
}

func (r *Resolver) AuthorizeVideo(ctx context.Context, userID uuid.UUID, v *video.Video, action rbac.Action) (team.Role, error) {
	role, err := r.VideoRole(ctx, userID, v)
	if err != nil {
		return "", err
	}
	if err := r.Authorize(role, presets.ResourceVideo, action); err != nil {
		return role, err
	}
	return role, nil
}

// Authorize maps an rbac denial to a FORBIDDEN AppError naming the roles
// that would have been allowed.
func (r *Resolver) Authorize(role team.Role, resource rbac.Resource, action rbac.Action) error {
	if err := r.checker.Authorize(rbac.Role(role), resource, action); err != nil {
		msg := fmt.Sprintf(msgForbiddenFmt, role, action, resource)
		if allowed := r.checker.RolesAllowed(resource, action); len(allowed) > 0 {
			names := make([]string, len(allowed))
			for i, a := range allowed {
				names[i] = string(a)
			}
			msg = fmt.Sprintf(msgAllowedFmt, msg, strings.Join(names, ", "))
		}
		return &apperrors.AppError{
			Code:    apperrors.CodeForbidden,
			Message: msg,
			Err:     errors.Join(apperrors.ErrForbidden, err),
		}
	}
	return nil
}

func noAccess() error {
	return &apperrors.AppError{Code: apperrors.CodeNotFound, Message: msgTeamNotFound, Err: ErrNoAccess}
}
