// Package upload drives a multipart upload from init to completion and
// keeps the advisory lock and provisional video row in step with the
// object store.
package upload

import (
	"context"
	"errors"
	"time"

	"uplora/internal/access"
	"uplora/internal/audit"
	"uplora/internal/config"
	domain "uplora/internal/domain/upload"
	"uplora/internal/domain/team"
	"uplora/internal/domain/video"
	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"
	"uplora/internal/realtime"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/metrics"
	"uplora/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore is the multipart surface of the storage adapter.
type ObjectStore interface {
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int64, expiry time.Duration) (string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []domain.Part) error
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
	ObjectSize(ctx context.Context, key string) (int64, error)
	AbortUploadsForKey(ctx context.Context, key string) (int, error)
}

type LockStore interface {
	Create(ctx context.Context, input domain.CreateLockInput) (*domain.Lock, error)
	GetByUserAndKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Lock, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Lock, error)
}

type VideoStore interface {
	Create(ctx context.Context, input video.CreateVideoInput) (*video.Video, error)
	MarkUploaded(ctx context.Context, userID uuid.UUID, key string, sizeBytes int64) ([]*video.Video, error)
	DeleteProvisional(ctx context.Context, id, userID uuid.UUID) (bool, error)
	GetProvisional(ctx context.Context, userID uuid.UUID, key string) (*video.Video, error)
	DeleteStaleProvisional(ctx context.Context, cutoff time.Time) ([]*video.Video, error)
}

type TeamAuthorizer interface {
	AuthorizeTeam(ctx context.Context, userID, teamID uuid.UUID, resource rbac.Resource, action rbac.Action) (team.Role, error)
}

type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

type Dependencies struct {
	Store   ObjectStore
	Locks   LockStore
	Videos  VideoStore
	Access  TeamAuthorizer
	Events  realtime.Publisher
	Audit   Auditor
	Metrics *metrics.Metrics
	Config  config.UploadConfig
	Logger  *zap.Logger
}

type Service struct {
	store   ObjectStore
	locks   LockStore
	videos  VideoStore
	access  TeamAuthorizer
	events  realtime.Publisher
	audit   Auditor
	metrics *metrics.Metrics
	cfg     config.UploadConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:   deps.Store,
		locks:   deps.Locks,
		videos:  deps.Videos,
		access:  deps.Access,
		events:  deps.Events,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

type InitInput struct {
	Filename    string
	ContentType string
	TeamID      *uuid.UUID
}

type InitResult struct {
	UploadID    string
	Key         string
	PartSize    int64
	TempID      uuid.UUID
	Filename    string
	ContentType string
	TeamID      *uuid.UUID
}

// Init opens a multipart upload, records the provisional video and takes
// the advisory lock. Nothing is written when the object store refuses the
// upload; a failed database write aborts the upload again.
func (s *Service) Init(ctx context.Context, userID uuid.UUID, in InitInput) (*InitResult, error) {
	if err := validator.FileName(in.Filename); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.ContentType(in.ContentType); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if in.TeamID != nil {
		if _, err := s.access.AuthorizeTeam(ctx, userID, *in.TeamID, presets.ResourceVideo, presets.ActionUpload); err != nil {
			if errors.Is(err, access.ErrNoAccess) {
				return nil, apperrors.Forbidden(msgNotTeamMember)
			}
			return nil, err
		}
	}

	key := domain.ObjectKey(userID, in.TeamID, uuid.NewString(), in.Filename)

	uploadID, err := s.store.CreateMultipartUpload(ctx, key, in.ContentType)
	if err != nil {
		return nil, apperrors.Upstream(msgCreateUploadFailed, err)
	}

	v, err := s.videos.Create(ctx, video.CreateVideoInput{
		UserID:      userID,
		TeamID:      in.TeamID,
		Key:         key,
		Filename:    in.Filename,
		ContentType: in.ContentType,
	})
	if err != nil {
		s.abort(ctx, key, uploadID)
		return nil, err
	}

	_, err = s.locks.Create(ctx, domain.CreateLockInput{
		UserID: userID,
		Key:    key,
		Metadata: domain.LockMetadata{
			Filename:    in.Filename,
			ContentType: in.ContentType,
			TeamID:      in.TeamID,
			UploadID:    uploadID,
			VideoID:     &v.ID,
		},
	})
	if err != nil {
		s.abort(ctx, key, uploadID)
		s.dropProvisional(ctx, v.ID, userID)
		return nil, err
	}

	s.metrics.UploadsInitiated.Inc()
	s.logger.Info("multipart upload initiated",
		zap.String("user_id", userID.String()), zap.String("key", key), zap.String("video_id", v.ID.String()))

	return &InitResult{
		UploadID:    uploadID,
		Key:         key,
		PartSize:    s.cfg.PartSize,
		TempID:      v.ID,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		TeamID:      in.TeamID,
	}, nil
}

type SignInput struct {
	Key        string
	UploadID   string
	PartNumber int64
}

// Sign presigns one part. Lock ownership is only checked when the
// configuration asks for it; otherwise the key and upload id are the
// credential.
func (s *Service) Sign(ctx context.Context, userID uuid.UUID, in SignInput) (string, error) {
	if err := validateTarget(in.Key, in.UploadID); err != nil {
		return "", err
	}
	if err := validator.PartNumber(in.PartNumber); err != nil {
		return "", apperrors.Validation(err.Error())
	}

	if s.cfg.SignRequiresLock {
		if _, err := s.ownedLock(ctx, userID, in.Key, in.UploadID); err != nil {
			return "", err
		}
	}

	url, err := s.store.PresignUploadPart(ctx, in.Key, in.UploadID, in.PartNumber, s.cfg.PartURLExpiry)
	if err != nil {
		return "", apperrors.Internal(msgSignPartFailed, err)
	}
	return url, nil
}

type CompleteInput struct {
	Key      string
	UploadID string
	Parts    []domain.Part
}

type CompleteResult struct {
	Videos        []*video.Video
	LocksReleased int64
}

// Complete stitches the parts and then finalizes like PutComplete. The
// caller must hold the lock for the upload, or still own the provisional
// video when another completion already released the lock.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID, in CompleteInput) (*CompleteResult, error) {
	if err := validateTarget(in.Key, in.UploadID); err != nil {
		return nil, err
	}
	if len(in.Parts) == 0 {
		return nil, apperrors.Validation(msgPartsRequired)
	}
	for _, p := range in.Parts {
		if err := validator.PartNumber(p.PartNumber); err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		if p.ETag == "" {
			return nil, apperrors.Validation(msgPartETagRequired)
		}
	}

	if err := s.ownsUpload(ctx, userID, in.Key, in.UploadID); err != nil {
		return nil, err
	}

	if err := s.store.CompleteMultipartUpload(ctx, in.Key, in.UploadID, in.Parts); err != nil {
		return nil, apperrors.Internal(msgCompleteUploadFailed, err)
	}

	return s.finalize(ctx, userID, in.Key)
}

// PutComplete finalizes an object the client wrote directly.
func (s *Service) PutComplete(ctx context.Context, userID uuid.UUID, key string) (*CompleteResult, error) {
	if err := validator.ObjectKey(key); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	return s.finalize(ctx, userID, key)
}

// finalize releases every lock of the user, not just the one for key, and
// marks the matching videos uploaded.
func (s *Service) finalize(ctx context.Context, userID uuid.UUID, key string) (*CompleteResult, error) {
	released, err := s.locks.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	size, err := s.store.ObjectSize(ctx, key)
	if err != nil {
		s.logger.Warn("could not read uploaded object size", zap.String("key", key), zap.Error(err))
		size = 0
	}

	videos, err := s.videos.MarkUploaded(ctx, userID, key, size)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, apperrors.NotFound(msgVideoNotFound)
	}

	for _, v := range videos {
		s.metrics.VideoTransitions.WithLabelValues(string(v.Status)).Inc()
		s.events.Publish(realtime.VideoEvent(realtime.EventVideoStatus, v.ID, v.UserID, v.TeamID, map[string]any{
			"status": v.Status,
			"key":    v.Key,
		}))
		s.audit.Record(ctx, &audit.Event{
			ActorID:      &userID,
			ResourceType: audit.ResourceTypeUpload,
			ResourceID:   &v.ID,
			Action:       audit.ActionComplete,
			Metadata:     map[string]any{"key": v.Key, "size_bytes": v.SizeBytes},
		})
	}
	s.metrics.UploadsCompleted.Inc()

	return &CompleteResult{Videos: videos, LocksReleased: released}, nil
}

type CancelInput struct {
	Key      string
	UploadID string
}

// Cancel aborts the upload and removes its lock and provisional video.
// Internal failures are logged, never returned, so cancelling twice is
// as good as cancelling once.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, in CancelInput) error {
	if err := validateTarget(in.Key, in.UploadID); err != nil {
		return err
	}

	lock, err := s.locks.GetByUserAndKey(ctx, userID, in.Key)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Warn("cancel: lock lookup failed", zap.String("key", in.Key), zap.Error(err))
	}

	s.abort(ctx, in.Key, in.UploadID)

	if lock != nil {
		if _, err := s.locks.DeleteByID(ctx, lock.ID); err != nil {
			s.logger.Warn("cancel: lock delete failed", zap.String("lock_id", lock.ID.String()), zap.Error(err))
		}
		if lock.Metadata.VideoID != nil {
			s.dropProvisional(ctx, *lock.Metadata.VideoID, userID)
		}
		s.metrics.UploadsCancelled.Inc()
		s.audit.Record(ctx, &audit.Event{
			ActorID:      &userID,
			ResourceType: audit.ResourceTypeUpload,
			ResourceID:   lock.Metadata.VideoID,
			Action:       audit.ActionCancel,
			Metadata:     map[string]any{"key": in.Key},
		})
	}

	return nil
}

// Release drops every lock the user holds and reports how many went.
func (s *Service) Release(ctx context.Context, userID uuid.UUID) int64 {
	n, err := s.locks.DeleteByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("lock release failed", zap.String("user_id", userID.String()), zap.Error(err))
		return 0
	}
	return n
}

// ReapStaleLocks deletes locks older than olderThan and aborts their
// multipart uploads. Provisional videos of the same age that lost their
// lock are dropped too, with any upload still open under their key.
func (s *Service) ReapStaleLocks(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.StaleLockAge
	}

	cutoff := s.now().Add(-olderThan)
	locks, err := s.locks.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, l := range locks {
		if l.Metadata.UploadID != "" {
			s.abort(ctx, l.Key, l.Metadata.UploadID)
		}
		if l.Metadata.VideoID != nil {
			s.dropProvisional(ctx, *l.Metadata.VideoID, l.UserID)
		}
	}

	if len(locks) > 0 {
		s.metrics.LocksReaped.Add(float64(len(locks)))
		s.audit.Record(ctx, &audit.Event{
			ResourceType: audit.ResourceTypeUpload,
			Action:       audit.ActionReap,
			Metadata:     map[string]any{"count": len(locks), "older_than": olderThan.String()},
		})
	}

	s.reapOrphans(ctx, cutoff)

	return len(locks), nil
}

func (s *Service) reapOrphans(ctx context.Context, cutoff time.Time) {
	orphans, err := s.videos.DeleteStaleProvisional(ctx, cutoff)
	if err != nil {
		s.logger.Warn("orphaned upload cleanup failed", zap.Error(err))
		return
	}

	for _, v := range orphans {
		if _, err := s.store.AbortUploadsForKey(ctx, v.Key); err != nil {
			s.logger.Warn("abort orphaned upload failed", zap.String("key", v.Key), zap.Error(err))
		}
	}
	if len(orphans) > 0 {
		s.logger.Info("orphaned uploads reaped", zap.Int("count", len(orphans)))
	}
}

func (s *Service) StaleLockAge() time.Duration {
	return s.cfg.StaleLockAge
}

func (s *Service) ownedLock(ctx context.Context, userID uuid.UUID, key, uploadID string) (*domain.Lock, error) {
	lock, err := s.locks.GetByUserAndKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound(msgUploadNotFound)
		}
		return nil, err
	}
	if lock.Metadata.UploadID != uploadID {
		return nil, apperrors.NotFound(msgUploadNotFound)
	}
	return lock, nil
}

// ownsUpload accepts the lock for key and uploadID. Once another
// completion has released every lock of userID, an unfinished video of
// userID under key stands in for it.
func (s *Service) ownsUpload(ctx context.Context, userID uuid.UUID, key, uploadID string) error {
	lock, err := s.locks.GetByUserAndKey(ctx, userID, key)
	switch {
	case err == nil:
		if lock.Metadata.UploadID != uploadID {
			return apperrors.NotFound(msgUploadNotFound)
		}
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return err
	}

	if _, err := s.videos.GetProvisional(ctx, userID, key); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound(msgUploadNotFound)
		}
		return err
	}
	return nil
}

func (s *Service) abort(ctx context.Context, key, uploadID string) {
	if err := s.store.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		s.logger.Warn("abort multipart upload failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) dropProvisional(ctx context.Context, videoID, userID uuid.UUID) {
	if _, err := s.videos.DeleteProvisional(ctx, videoID, userID); err != nil {
		s.logger.Warn("provisional video cleanup failed", zap.String("video_id", videoID.String()), zap.Error(err))
	}
}

func validateTarget(key, uploadID string) error {
	if err := validator.ObjectKey(key); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := validator.UploadID(uploadID); err != nil {
		return apperrors.Validation(err.Error())
	}
	return nil
}
