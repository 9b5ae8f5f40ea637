package postgres

import (
	"context"
	"fmt"
	"time"

	"uplora/internal/domain/video"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const videoColumns = `id, user_id, team_id, key, filename, content_type, size_bytes, status, thumbnail_key,
	visibility, requested_by_user_id, approved_by_user_id, approved_at, scheduled_for, uploaded_at,
	created_at, updated_at`

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// scanVideo normalizes the stored status so legacy values never reach callers.
func scanVideo(row pgx.Row) (*video.Video, error) {
	v := &video.Video{}
	var status string
	err := row.Scan(
		&v.ID, &v.UserID, &v.TeamID, &v.Key, &v.Filename, &v.ContentType, &v.SizeBytes, &status, &v.ThumbnailKey,
		&v.Visibility, &v.RequestedByUserID, &v.ApprovedByUserID, &v.ApprovedAt, &v.ScheduledFor, &v.UploadedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Status = video.NormalizeStatus(status)
	return v, nil
}

func collectVideos(rows pgx.Rows) ([]*video.Video, error) {
	defer rows.Close()

	var videos []*video.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, errFailedScanVideo(err)
		}
		videos = append(videos, v)
	}

	return videos, rows.Err()
}

func (r *VideoRepository) Create(ctx context.Context, input video.CreateVideoInput) (*video.Video, error) {
	query := `
		INSERT INTO videos (user_id, team_id, key, filename, content_type, size_bytes, status, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + videoColumns

	v, err := scanVideo(r.db.Pool.QueryRow(ctx, query,
		input.UserID, input.TeamID, input.Key, input.Filename, input.ContentType, input.SizeBytes,
		video.StatusProcessing, video.VisibilityPrivate,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errVideoKeyExists)
		}
		return nil, errFailedCreateVideo(err)
	}

	return v, nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*video.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	v, err := scanVideo(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errVideoNotFound)
		}
		return nil, errFailedGetVideo(err)
	}

	return v, nil
}

// List returns a team's videos when filter.TeamID is set, otherwise the
// personal videos of filter.UserID.
func (r *VideoRepository) List(ctx context.Context, filter video.ListFilter) ([]*video.Video, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultVideoListLimit
	}
	if limit > maxVideoListLimit {
		limit = maxVideoListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		query string
		arg   interface{}
	)
	if filter.TeamID != nil {
		query = `SELECT ` + videoColumns + ` FROM videos WHERE team_id = $1`
		arg = *filter.TeamID
	} else {
		query = `SELECT ` + videoColumns + ` FROM videos WHERE user_id = $1 AND team_id IS NULL`
		arg = filter.UserID
	}
	query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"

	rows, err := r.db.Pool.Query(ctx, query, arg, limit, offset)
	if err != nil {
		return nil, errFailedListVideos(err)
	}

	return collectVideos(rows)
}

// MarkUploaded stamps uploaded_at and resets status to PROCESSING on every
// video of userID stored under key. A positive sizeBytes replaces the
// recorded size.
func (r *VideoRepository) MarkUploaded(ctx context.Context, userID uuid.UUID, key string, sizeBytes int64) ([]*video.Video, error) {
	query := `
		UPDATE videos
		SET uploaded_at = NOW(),
			status = $3,
			size_bytes = CASE WHEN $4::bigint > 0 THEN $4::bigint ELSE size_bytes END,
			updated_at = NOW()
		WHERE user_id = $1 AND key = $2
		RETURNING ` + videoColumns

	rows, err := r.db.Pool.Query(ctx, query, userID, key, video.StatusProcessing, sizeBytes)
	if err != nil {
		return nil, errFailedMarkUploaded(err)
	}

	return collectVideos(rows)
}

func (r *VideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, input video.StatusUpdate) (*video.Video, error) {
	query := "UPDATE videos SET updated_at = NOW(), status = $2"
	args := []interface{}{id, input.Status}
	argCount := 2

	if input.RequestedByUserID != nil {
		argCount++
		query += fmt.Sprintf(", requested_by_user_id = $%d", argCount)
		args = append(args, *input.RequestedByUserID)
	}

	if input.ApprovedByUserID != nil {
		argCount++
		query += fmt.Sprintf(", approved_by_user_id = $%d", argCount)
		args = append(args, *input.ApprovedByUserID)
	}

	if input.ApprovedAt != nil {
		argCount++
		query += fmt.Sprintf(", approved_at = $%d", argCount)
		args = append(args, *input.ApprovedAt)
	}

	query += " WHERE id = $1 RETURNING " + videoColumns

	v, err := scanVideo(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errVideoNotFound)
		}
		return nil, errFailedUpdateVideo(err)
	}

	return v, nil
}

// ReplaceFile points the video at a new object and starts its lifecycle
// over: status PROCESSING with approval fields cleared.
func (r *VideoRepository) ReplaceFile(ctx context.Context, id uuid.UUID, input video.ReplaceFileInput) (*video.Video, error) {
	query := `
		UPDATE videos
		SET key = $2,
			filename = $3,
			content_type = COALESCE(NULLIF($4::text, ''), content_type),
			size_bytes = CASE WHEN $5::bigint > 0 THEN $5::bigint ELSE size_bytes END,
			status = $6,
			requested_by_user_id = NULL,
			approved_by_user_id = NULL,
			approved_at = NULL,
			uploaded_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + videoColumns

	v, err := scanVideo(r.db.Pool.QueryRow(ctx, query,
		id, input.Key, input.Filename, input.ContentType, input.SizeBytes, video.StatusProcessing,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errVideoNotFound)
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errVideoKeyExists)
		}
		return nil, errFailedReplaceVideo(err)
	}

	return v, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := "DELETE FROM videos WHERE id = $1"
	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errFailedDeleteVideo(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errVideoNotFound)
	}

	return nil
}

// DeleteProvisional removes a video of userID that never finished
// uploading. It reports whether a row was removed.
func (r *VideoRepository) DeleteProvisional(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := "DELETE FROM videos WHERE id = $1 AND user_id = $2 AND uploaded_at IS NULL"
	result, err := r.db.Pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, errFailedDeleteVideo(err)
	}

	return result.RowsAffected() > 0, nil
}

// GetProvisional returns the newest video of userID under key that has not
// finished uploading.
func (r *VideoRepository) GetProvisional(ctx context.Context, userID uuid.UUID, key string) (*video.Video, error) {
	query := `SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = $1 AND key = $2 AND uploaded_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	v, err := scanVideo(r.db.Pool.QueryRow(ctx, query, userID, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound(errVideoNotFound)
		}
		return nil, errFailedGetVideo(err)
	}

	return v, nil
}

// DeleteStaleProvisional removes videos that never finished uploading,
// were created before cutoff and no longer have an upload lock.
func (r *VideoRepository) DeleteStaleProvisional(ctx context.Context, cutoff time.Time) ([]*video.Video, error) {
	query := `
		DELETE FROM videos v
		WHERE v.uploaded_at IS NULL
			AND v.created_at < $1
			AND NOT EXISTS (
				SELECT 1 FROM upload_locks l WHERE l.user_id = v.user_id AND l.key = v.key
			)
		RETURNING ` + videoColumns

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, errFailedDeleteVideo(err)
	}

	return collectVideos(rows)
}
