package handler

import (
	"net/http"

	"uplora/internal/auth"
	domainteam "uplora/internal/domain/team"
	"uplora/internal/team"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TeamHandler serves /api/teams and /api/invites. Routes with :teamId run
// behind RequireTeamAction, which puts the team id and the caller's role
// in the context.
type TeamHandler struct {
	teams TeamService
}

func NewTeamHandler(teams TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

type CreateTeamRequest struct {
	Name string `json:"name"`
}

func (h *TeamHandler) Create(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req CreateTeamRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	t, err := h.teams.Create(c.Request().Context(), userID, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newTeamResponse(t, domainteam.RoleOwner))
}

type ListTeamsResponse struct {
	Teams []TeamResponse `json:"teams"`
}

func (h *TeamHandler) List(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	memberships, err := h.teams.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	out := make([]TeamResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, newTeamResponse(&m.Team, m.Role))
	}
	return c.JSON(http.StatusOK, ListTeamsResponse{Teams: out})
}

type ListMembersResponse struct {
	Members []MemberResponse `json:"members"`
}

func (h *TeamHandler) Members(c echo.Context) error {
	teamID, err := contextTeamID(c)
	if err != nil {
		return err
	}

	members, err := h.teams.Members(c.Request().Context(), teamID)
	if err != nil {
		return err
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, newMemberResponse(m))
	}
	return c.JSON(http.StatusOK, ListMembersResponse{Members: out})
}

type UpdateMemberRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

func (h *TeamHandler) UpdateMember(c echo.Context) error {
	actor, teamID, err := teamActor(c)
	if err != nil {
		return err
	}
	userID, err := parseUUIDParam(c, paramUserID, msgInvalidUserID)
	if err != nil {
		return err
	}

	var req UpdateMemberRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	m, err := h.teams.UpdateMember(c.Request().Context(), actor, teamID, userID, team.UpdateMemberInput{
		Role:   req.Role,
		Status: req.Status,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newMemberResponse(m))
}

func (h *TeamHandler) RemoveMember(c echo.Context) error {
	actor, teamID, err := teamActor(c)
	if err != nil {
		return err
	}
	userID, err := parseUUIDParam(c, paramUserID, msgInvalidUserID)
	if err != nil {
		return err
	}

	if err := h.teams.RemoveMember(c.Request().Context(), actor, teamID, userID); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgMemberRemoved)
}

func (h *TeamHandler) Leave(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	teamID, err := contextTeamID(c)
	if err != nil {
		return err
	}

	if err := h.teams.Leave(c.Request().Context(), userID, teamID); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgLeftTeam)
}

type CreateInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *TeamHandler) Invite(c echo.Context) error {
	actor, teamID, err := teamActor(c)
	if err != nil {
		return err
	}

	var req CreateInviteRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	res, err := h.teams.Invite(c.Request().Context(), actor, teamID, team.InviteInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newInviteResponse(res.Invite))
}

type ListInvitesResponse struct {
	Invites []InviteResponse `json:"invites"`
}

func (h *TeamHandler) Invites(c echo.Context) error {
	teamID, err := contextTeamID(c)
	if err != nil {
		return err
	}

	invites, err := h.teams.Invites(c.Request().Context(), teamID)
	if err != nil {
		return err
	}

	out := make([]InviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, newInviteResponse(inv))
	}
	return c.JSON(http.StatusOK, ListInvitesResponse{Invites: out})
}

type CancelInviteRequest struct {
	ID    string  `json:"id"`
	Email *string `json:"email"`
}

type CancelInviteResponse struct {
	Cancelled int64 `json:"cancelled"`
}

func (h *TeamHandler) CancelInvite(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	teamID, err := contextTeamID(c)
	if err != nil {
		return err
	}

	var req CancelInviteRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	id, err := parseOptionalUUID(req.ID, msgInvalidInviteID)
	if err != nil {
		return err
	}

	n, err := h.teams.CancelInvite(c.Request().Context(), userID, teamID, team.CancelInviteInput{
		ID:    id,
		Email: req.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, CancelInviteResponse{Cancelled: n})
}

type InviteTokenRequest struct {
	Token string `json:"token"`
}

type AcceptInviteResponse struct {
	TeamID uuid.UUID       `json:"teamId"`
	Role   domainteam.Role `json:"role"`
}

func (h *TeamHandler) AcceptInvite(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req InviteTokenRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	inv, err := h.teams.AcceptInvite(c.Request().Context(), userID, req.Token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AcceptInviteResponse{TeamID: inv.TeamID, Role: inv.Role})
}

func (h *TeamHandler) DeclineInvite(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	var req InviteTokenRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	if err := h.teams.DeclineInvite(c.Request().Context(), userID, req.Token); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgInviteDeclined)
}

func contextTeamID(c echo.Context) (uuid.UUID, error) {
	if id, ok := auth.GetTeamID(c); ok {
		return id, nil
	}
	return parseUUIDParam(c, paramTeamID, msgInvalidTeamID)
}

func teamActor(c echo.Context) (team.Actor, uuid.UUID, error) {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return team.Actor{}, uuid.Nil, err
	}
	teamID, err := contextTeamID(c)
	if err != nil {
		return team.Actor{}, uuid.Nil, err
	}
	return team.Actor{UserID: userID, Role: auth.GetTeamRole(c)}, teamID, nil
}
