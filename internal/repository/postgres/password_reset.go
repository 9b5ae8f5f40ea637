package postgres

import (
	"context"
	"time"

	"uplora/internal/domain/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const resetColumns = `id, user_id, token_hash, expires_at, used_at, created_at`

type PasswordResetRepository struct {
	db *DB
}

func NewPasswordResetRepository(db *DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func scanResetToken(row pgx.Row) (*user.PasswordResetToken, error) {
	t := &user.PasswordResetToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	return t, err
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*user.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + resetColumns

	t, err := scanResetToken(r.db.Pool.QueryRow(ctx, query, userID, tokenHash, expiresAt))
	if err != nil {
		return nil, errFailedCreateReset(err)
	}

	return t, nil
}

