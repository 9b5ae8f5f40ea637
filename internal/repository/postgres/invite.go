package postgres

import (
	"context"
	"fmt"

	"uplora/internal/domain/team"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inviteColumns = `id, team_id, email, role, token_hash, status, invited_by, expires_at, accepted_at, created_at`

type InviteRepository struct {
	db *DB
}

func NewInviteRepository(db *DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func scanInvite(row pgx.Row) (*team.Invite, error) {
	inv := &team.Invite{}
	err := row.Scan(
		&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.Status,
		&inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt,
	)
	return inv, err
}

func (r *InviteRepository) Create(ctx context.Context, input team.CreateInviteInput) (*team.Invite, error) {
	query := `
		INSERT INTO team_invites (team_id, email, role, token_hash, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + inviteColumns

	inv, err := scanInvite(r.db.Pool.QueryRow(ctx, query,
		input.TeamID, input.Email, input.Role, input.TokenHash, input.InvitedBy, input.ExpiresAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errInviteAlreadyExists)
		}
		return nil, errFailedCreateInvite(err)
	}

	return inv, nil
}

// HasPending reports whether a PENDING invite exists for email on the team.
func (r *InviteRepository) HasPending(ctx context.Context, teamID uuid.UUID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM team_invites
			WHERE team_id = $1 AND LOWER(email) = LOWER($2) AND status = 'PENDING' AND expires_at > NOW()
		)
	`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, teamID, email).Scan(&exists); err != nil {
		return false, errFailedGetInvite(err)
	}
	return exists, nil
}

func (r *InviteRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*team.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE team_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, errFailedListInvites(err)
	}
	defer rows.Close()

	var invites []*team.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, errFailedScanInvite(err)
		}
		invites = append(invites, inv)
	}

	return invites, rows.Err()
}

func (r *InviteRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*team.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE token_hash = $1`

	inv, err := scanInvite(r.db.Pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errInviteNotFound)
		}
		return nil, errFailedGetInvite(err)
	}

	return inv, nil
}

// Cancel rejects every PENDING invite on the team matching the given id
// and/or email and returns how many were changed.
func (r *InviteRepository) Cancel(ctx context.Context, input team.CancelInviteInput) (int64, error) {
	query := "UPDATE team_invites SET status = 'REJECTED' WHERE team_id = $1 AND status = 'PENDING'"
	args := []interface{}{input.TeamID}
	argCount := 1

	if input.ID != nil {
		argCount++
		query += fmt.Sprintf(" AND id = $%d", argCount)
		args = append(args, *input.ID)
	}

	if input.Email != nil {
		argCount++
		query += fmt.Sprintf(" AND LOWER(email) = LOWER($%d)", argCount)
		args = append(args, *input.Email)
	}

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, errFailedUpdateInvite(err)
	}

	return result.RowsAffected(), nil
}

// Decline rejects a PENDING invite by token hash.
func (r *InviteRepository) Decline(ctx context.Context, tokenHash string) (*team.Invite, error) {
	query := `
		UPDATE team_invites SET status = 'REJECTED'
		WHERE token_hash = $1 AND status = 'PENDING'
		RETURNING ` + inviteColumns

	inv, err := scanInvite(r.db.Pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errInviteNotFound)
		}
		return nil, errFailedUpdateInvite(err)
	}

	return inv, nil
}
