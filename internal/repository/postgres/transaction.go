package postgres

import (
	"context"
	"errors"
	"time"

	"uplora/internal/domain/team"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	errInviteNotPendingMsg = "invite has already been used or cancelled"
	errInviteExpiredMsg    = "invite has expired"
	errInviteEmailMsg      = "invite was sent to a different email address"
	errResetTokenUsedMsg   = "reset token has expired or was already used"
)

// AcceptInviteTransaction consumes a pending invite and creates (or
// re-activates) exactly one membership for userID. The invite row is held
// FOR UPDATE so two concurrent accepts cannot both succeed.
func (db *DB) AcceptInviteTransaction(ctx context.Context, tokenHash string, userID uuid.UUID, email string, now time.Time) (*team.Invite, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, errFailedStartTransaction(err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + inviteColumns + ` FROM team_invites WHERE token_hash = $1 FOR UPDATE`

	inv, err := scanInvite(tx.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errInviteNotFound)
		}
		return nil, errFailedGetInvite(err)
	}

	if err := inv.CheckAcceptable(email, now); err != nil {
		switch {
		case errors.Is(err, team.ErrInviteNotPending):
			return nil, apperrors.Conflict(errInviteNotPendingMsg)
		case errors.Is(err, team.ErrInviteExpired):
			return nil, apperrors.Expired(errInviteExpiredMsg)
		default:
			return nil, apperrors.Forbidden(errInviteEmailMsg)
		}
	}

	var ownerID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM teams WHERE id = $1`, inv.TeamID).Scan(&ownerID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errTeamNotFound)
		}
		return nil, errFailedGetTeam(err)
	}
	if ownerID == userID {
		return nil, apperrors.Conflict(errOwnerCannotJoin)
	}

	memberQuery := `
		INSERT INTO team_members (team_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO UPDATE
		SET status = 'ACTIVE', role = EXCLUDED.role, invited_by = EXCLUDED.invited_by
		WHERE team_members.status = 'DISABLED'
		RETURNING id
	`

	var memberID uuid.UUID
	err = tx.QueryRow(ctx, memberQuery, inv.TeamID, userID, inv.Role, inv.InvitedBy).Scan(&memberID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.Conflict(errAlreadyMember)
		}
		return nil, errFailedActivateMember(err)
	}

	acceptQuery := `
		UPDATE team_invites SET status = 'ACCEPTED', accepted_at = $2
		WHERE id = $1
		RETURNING ` + inviteColumns

	inv, err = scanInvite(tx.QueryRow(ctx, acceptQuery, inv.ID, now))
	if err != nil {
		return nil, errFailedAcceptInvite(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errFailedCommitTransaction(err)
	}

	return inv, nil
}

// ResetPasswordTransaction swaps the password hash and burns the token in
// one transaction. Every other outstanding token of the user is burned too.
func (db *DB) ResetPasswordTransaction(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, errFailedStartTransaction(err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + resetColumns + ` FROM password_reset_tokens WHERE token_hash = $1 FOR UPDATE`

	t, err := scanResetToken(tx.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, apperrors.NotFound(errResetTokenNotFound)
		}
		return uuid.Nil, errFailedGetReset(err)
	}

	if !t.Usable(now) {
		return uuid.Nil, apperrors.Expired(errResetTokenUsedMsg)
	}

	result, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, t.UserID, passwordHash)
	if err != nil {
		return uuid.Nil, errFailedUpdatePassword(err)
	}
	if result.RowsAffected() == 0 {
		return uuid.Nil, apperrors.NotFound(errUserNotFound)
	}

	_, err = tx.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = $2 WHERE user_id = $1 AND used_at IS NULL`,
		t.UserID, now,
	)
	if err != nil {
		return uuid.Nil, errFailedConsumeReset(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, errFailedCommitTransaction(err)
	}

	return t.UserID, nil
}
