package postgres

import (
	"context"
	"fmt"

	"uplora/internal/domain/team"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const memberSelect = `
	SELECT m.id, m.team_id, m.user_id, u.email, u.name, m.role, m.status, m.invited_by, m.created_at
	FROM team_members m
	INNER JOIN users u ON u.id = m.user_id
`

type TeamRepository struct {
	db *DB
}

func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func scanMember(row pgx.Row) (*team.Member, error) {
	m := &team.Member{}
	err := row.Scan(
		&m.ID, &m.TeamID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.Status, &m.InvitedBy, &m.CreatedAt,
	)
	return m, err
}

func (r *TeamRepository) Create(ctx context.Context, input team.CreateTeamInput) (*team.Team, error) {
	query := `
		INSERT INTO teams (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at, updated_at
	`

	t := &team.Team{}
	err := r.db.Pool.QueryRow(ctx, query, input.Name, input.OwnerID).Scan(
		&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.NotFound(errUserNotFound)
		}
		return nil, errFailedCreateTeam(err)
	}

	return t, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	query := `SELECT id, name, owner_id, created_at, updated_at FROM teams WHERE id = $1`

	t := &team.Team{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errTeamNotFound)
		}
		return nil, errFailedGetTeam(err)
	}

	return t, nil
}

// ListForUser returns owned teams and teams with an ACTIVE membership.
func (r *TeamRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*team.Membership, error) {
	query := `
		SELECT t.id, t.name, t.owner_id, t.created_at, t.updated_at, 'OWNER' AS role
		FROM teams t
		WHERE t.owner_id = $1
		UNION ALL
		SELECT t.id, t.name, t.owner_id, t.created_at, t.updated_at, m.role
		FROM teams t
		INNER JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1 AND m.status = 'ACTIVE' AND t.owner_id <> $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errFailedListTeams(err)
	}
	defer rows.Close()

	var teams []*team.Membership
	for rows.Next() {
		ms := &team.Membership{}
		if err := rows.Scan(
			&ms.Team.ID, &ms.Team.Name, &ms.Team.OwnerID, &ms.Team.CreatedAt, &ms.Team.UpdatedAt, &ms.Role,
		); err != nil {
			return nil, errFailedScanTeam(err)
		}
		teams = append(teams, ms)
	}

	return teams, rows.Err()
}

func (r *TeamRepository) AddMember(ctx context.Context, input team.AddMemberInput) (*team.Member, error) {
	query := `
		INSERT INTO team_members (team_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.Pool.QueryRow(ctx, query, input.TeamID, input.UserID, input.Role, input.InvitedBy).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errAlreadyMember)
		}
		return nil, errFailedAddMember(err)
	}

	return r.GetMember(ctx, input.TeamID, input.UserID)
}

// GetMember returns the membership row regardless of status.
func (r *TeamRepository) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*team.Member, error) {
	query := memberSelect + ` WHERE m.team_id = $1 AND m.user_id = $2`

	m, err := scanMember(r.db.Pool.QueryRow(ctx, query, teamID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errMemberNotFound)
		}
		return nil, errFailedGetMember(err)
	}

	return m, nil
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]*team.Member, error) {
	query := memberSelect + ` WHERE m.team_id = $1 ORDER BY m.created_at ASC`

	rows, err := r.db.Pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, errFailedListMembers(err)
	}
	defer rows.Close()

	var members []*team.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, errFailedScanMember(err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *TeamRepository) UpdateMember(ctx context.Context, input team.UpdateMemberInput) error {
	query := "UPDATE team_members SET team_id = team_id"
	args := []interface{}{input.TeamID, input.UserID}
	argCount := 2

	if input.Role != nil {
		argCount++
		query += fmt.Sprintf(", role = $%d", argCount)
		args = append(args, *input.Role)
	}

	if input.Status != nil {
		argCount++
		query += fmt.Sprintf(", status = $%d", argCount)
		args = append(args, *input.Status)
	}

	query += " WHERE team_id = $1 AND user_id = $2"

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return errFailedUpdateMember(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errMemberNotFound)
	}

	return nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	query := "DELETE FROM team_members WHERE team_id = $1 AND user_id = $2"
	result, err := r.db.Pool.Exec(ctx, query, teamID, userID)
	if err != nil {
		return errFailedRemoveMember(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errMemberNotFound)
	}

	return nil
}
