package postgres

import (
	"context"
	"time"

	"uplora/internal/domain/upload"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const lockColumns = `id, user_id, key, metadata, created_at`

// UploadLockRepository stores advisory upload locks. Nothing here enforces
// a single lock per user; callers treat the rows as markers.
type UploadLockRepository struct {
	db *DB
}

func NewUploadLockRepository(db *DB) *UploadLockRepository {
	return &UploadLockRepository{db: db}
}

func scanLock(row pgx.Row) (*upload.Lock, error) {
	l := &upload.Lock{}
	var raw []byte
	if err := row.Scan(&l.ID, &l.UserID, &l.Key, &raw, &l.CreatedAt); err != nil {
		return nil, err
	}

	meta, err := upload.ParseLockMetadata(raw)
	if err != nil {
		return nil, err
	}
	l.Metadata = meta
	return l, nil
}

func collectLocks(rows pgx.Rows) ([]*upload.Lock, error) {
	defer rows.Close()

	var locks []*upload.Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, errFailedScanLock(err)
		}
		locks = append(locks, l)
	}

	return locks, rows.Err()
}

func (r *UploadLockRepository) Create(ctx context.Context, input upload.CreateLockInput) (*upload.Lock, error) {
	meta, err := input.Metadata.Marshal()
	if err != nil {
		return nil, errFailedMarshalLock(err)
	}

	query := `
		INSERT INTO upload_locks (user_id, key, metadata)
		VALUES ($1, $2, $3::jsonb)
		RETURNING ` + lockColumns

	l, err := scanLock(r.db.Pool.QueryRow(ctx, query, input.UserID, input.Key, string(meta)))
	if err != nil {
		return nil, errFailedCreateLock(err)
	}

	return l, nil
}

// GetByUserAndKey returns the newest lock of userID for key.
func (r *UploadLockRepository) GetByUserAndKey(ctx context.Context, userID uuid.UUID, key string) (*upload.Lock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM upload_locks
		WHERE user_id = $1 AND key = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	l, err := scanLock(r.db.Pool.QueryRow(ctx, query, userID, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errLockNotFound)
		}
		return nil, errFailedGetLock(err)
	}

	return l, nil
}

func (r *UploadLockRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.Pool.Exec(ctx, "DELETE FROM upload_locks WHERE id = $1", id)
	if err != nil {
		return false, errFailedDeleteLocks(err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteByUser removes every lock held by userID.
func (r *UploadLockRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, "DELETE FROM upload_locks WHERE user_id = $1", userID)
	if err != nil {
		return 0, errFailedDeleteLocks(err)
	}
	return result.RowsAffected(), nil
}

// DeleteOlderThan removes locks created before cutoff and returns them so
// the caller can abort the matching multipart uploads.
func (r *UploadLockRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*upload.Lock, error) {
	query := `DELETE FROM upload_locks WHERE created_at < $1 RETURNING ` + lockColumns

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, errFailedDeleteLocks(err)
	}

	return collectLocks(rows)
}
