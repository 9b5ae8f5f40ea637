// Package video implements the approval workflow and file management of
// uploaded videos. Callers authorize first; every method here assumes the
// actor may perform the action on the video it is handed.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uplora/internal/audit"
	"uplora/internal/config"
	"uplora/internal/domain/team"
	domain "uplora/internal/domain/upload"
	"uplora/internal/domain/user"
	"uplora/internal/domain/video"
	"uplora/internal/notify"
	"uplora/internal/rbac"
	"uplora/internal/rbac/presets"
	"uplora/internal/realtime"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/metrics"
	"uplora/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectSize(ctx context.Context, key string) (int64, error)
}

type VideoStore interface {
	List(ctx context.Context, filter video.ListFilter) ([]*video.Video, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input video.StatusUpdate) (*video.Video, error)
	ReplaceFile(ctx context.Context, id uuid.UUID, input video.ReplaceFileInput) (*video.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TeamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type TeamAuthorizer interface {
	AuthorizeTeam(ctx context.Context, userID, teamID uuid.UUID, resource rbac.Resource, action rbac.Action) (team.Role, error)
}

// URLCache holds presigned playback URLs by object key.
type URLCache interface {
	Get(key string) (string, bool)
	Set(key, url string, expiresAt time.Time)
	Invalidate(key string)
}

type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

type Dependencies struct {
	Store    ObjectStore
	Videos   VideoStore
	Teams    TeamStore
	Users    UserStore
	Access   TeamAuthorizer
	URLs     URLCache
	Notifier notify.Notifier
	Events   realtime.Publisher
	Audit    Auditor
	Metrics  *metrics.Metrics
	Config   config.UploadConfig
	Logger   *zap.Logger
}

type Service struct {
	store    ObjectStore
	videos   VideoStore
	teams    TeamStore
	users    UserStore
	access   TeamAuthorizer
	urls     URLCache
	notifier notify.Notifier
	events   realtime.Publisher
	audit    Auditor
	metrics  *metrics.Metrics
	cfg      config.UploadConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:    deps.Store,
		videos:   deps.Videos,
		teams:    deps.Teams,
		users:    deps.Users,
		access:   deps.Access,
		urls:     deps.URLs,
		notifier: deps.Notifier,
		events:   deps.Events,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		cfg:      deps.Config,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// View is a video together with a playback URL. PlaybackURL is empty until
// the object has been uploaded.
type View struct {
	*video.Video
	PlaybackURL string
}

func (s *Service) Get(ctx context.Context, v *video.Video) (*View, error) {
	url, err := s.playbackURL(ctx, v)
	if err != nil {
		return nil, err
	}
	return &View{Video: v, PlaybackURL: url}, nil
}

type ListInput struct {
	TeamID *uuid.UUID
	Limit  int
	Offset int
}

// List returns the caller's personal videos, or a team's videos when
// in.TeamID is set and the caller holds any role on the team.
func (s *Service) List(ctx context.Context, userID uuid.UUID, in ListInput) ([]*View, error) {
	if in.TeamID != nil {
		if _, err := s.access.AuthorizeTeam(ctx, userID, *in.TeamID, presets.ResourceVideo, presets.ActionRead); err != nil {
			return nil, err
		}
	}

	videos, err := s.videos.List(ctx, video.ListFilter{
		TeamID: in.TeamID,
		UserID: userID,
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, err
	}

	views := make([]*View, 0, len(videos))
	for _, v := range videos {
		url, err := s.playbackURL(ctx, v)
		if err != nil {
			return nil, err
		}
		views = append(views, &View{Video: v, PlaybackURL: url})
	}
	return views, nil
}

// RequestApproval moves the video to APPROVAL_REQUESTED and emails the
// team owner.
func (s *Service) RequestApproval(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	updated, err := s.transition(ctx, v, video.StatusUpdate{
		Status:            video.StatusApprovalRequested,
		RequestedByUserID: &actorID,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, updated, audit.ActionRequestApproval, nil)
	s.notifyApprovalRequested(ctx, actorID, updated)
	return updated, nil
}

// Approve records the approval and immediately runs the publish step:
// SCHEDULED when scheduled_for lies in the future, POSTED otherwise.
func (s *Service) Approve(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	now := s.now()
	approved, err := s.transition(ctx, v, video.StatusUpdate{
		Status:           video.StatusApprovalApproved,
		ApprovedByUserID: &actorID,
		ApprovedAt:       &now,
	})
	if err != nil {
		return nil, err
	}

	next := video.StatusPosted
	if approved.ScheduledFor != nil && approved.ScheduledFor.After(now) {
		next = video.StatusScheduled
	}

	published, err := s.transition(ctx, approved, video.StatusUpdate{Status: next})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, published, audit.ActionApprove, map[string]any{"status": published.Status})
	s.notifyApproved(ctx, actorID, published)
	return published, nil
}

// Reject sends a video awaiting approval back to READY_TO_PUBLISH.
func (s *Service) Reject(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	if v.Status != video.StatusApprovalRequested {
		return nil, apperrors.Conflict(msgNotAwaitingApproval)
	}

	updated, err := s.transition(ctx, v, video.StatusUpdate{Status: video.StatusReadyToPublish})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, updated, audit.ActionReject, nil)
	return updated, nil
}

// Delete removes the row first; the blob and thumbnail go afterwards on a
// best-effort basis so a storage outage never leaves a dangling row.
func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, v *video.Video) error {
	if err := s.videos.Delete(ctx, v.ID); err != nil {
		return err
	}

	s.deleteObject(ctx, v.Key)
	if v.ThumbnailKey != nil && *v.ThumbnailKey != "" {
		s.deleteObject(ctx, *v.ThumbnailKey)
	}

	s.events.Publish(realtime.VideoEvent(realtime.EventVideoDeleted, v.ID, v.UserID, v.TeamID, nil))
	s.record(ctx, actorID, v, audit.ActionDelete, map[string]any{"key": v.Key})
	return nil
}

type ReplacePresignInput struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

type ReplaceTarget struct {
	URL       string
	Key       string
	ExpiresIn time.Duration
}

// ReplacePresign signs a PUT for a fresh key in the video's scope.
func (s *Service) ReplacePresign(ctx context.Context, v *video.Video, in ReplacePresignInput) (*ReplaceTarget, error) {
	if err := validator.FileName(in.Filename); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.ContentType(in.ContentType); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.FileSize(in.SizeBytes, s.cfg.MaxSize); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	key := domain.ObjectKey(v.UserID, v.TeamID, uuid.NewString(), in.Filename)

	url, err := s.store.PresignPut(ctx, key, in.ContentType, s.cfg.PutURLExpiry)
	if err != nil {
		return nil, apperrors.Internal(msgPresignReplaceError, err)
	}

	return &ReplaceTarget{URL: url, Key: key, ExpiresIn: s.cfg.PutURLExpiry}, nil
}

type ReplaceCompleteInput struct {
	Key         string
	Filename    string
	ContentType string
}

// ReplaceComplete swaps the video onto the uploaded object, restarts its
// lifecycle at PROCESSING and deletes the previous object.
func (s *Service) ReplaceComplete(ctx context.Context, actorID uuid.UUID, v *video.Video, in ReplaceCompleteInput) (*video.Video, error) {
	if err := validator.ObjectKey(in.Key); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.FileName(in.Filename); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if !domain.InScope(in.Key, v.UserID, v.TeamID) {
		return nil, apperrors.Validation(msgKeyOutOfScope)
	}

	size, err := s.store.ObjectSize(ctx, in.Key)
	if err != nil {
		s.logger.Warn("could not read replacement object size", zap.String("key", in.Key), zap.Error(err))
		size = 0
	}

	updated, err := s.videos.ReplaceFile(ctx, v.ID, video.ReplaceFileInput{
		Key:         in.Key,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		SizeBytes:   size,
	})
	if err != nil {
		return nil, err
	}

	if v.Key != in.Key {
		s.deleteObject(ctx, v.Key)
	}

	s.metrics.VideoTransitions.WithLabelValues(string(updated.Status)).Inc()
	s.events.Publish(realtime.VideoEvent(realtime.EventVideoReplaced, updated.ID, updated.UserID, updated.TeamID, map[string]any{
		"status":   updated.Status,
		"key":      updated.Key,
		"filename": updated.Filename,
	}))
	s.record(ctx, actorID, updated, audit.ActionReplace, map[string]any{"old_key": v.Key, "key": updated.Key})
	return updated, nil
}

// transition checks the status table, persists the change and broadcasts
// the new status.
func (s *Service) transition(ctx context.Context, v *video.Video, update video.StatusUpdate) (*video.Video, error) {
	if _, err := video.Transition(v.Status, update.Status); err != nil {
		if errors.Is(err, video.ErrInvalidTransition) {
			return nil, apperrors.Conflict(fmt.Sprintf(msgStatusConflictFmt, v.Status, update.Status))
		}
		return nil, err
	}

	updated, err := s.videos.UpdateStatus(ctx, v.ID, update)
	if err != nil {
		return nil, err
	}

	s.metrics.VideoTransitions.WithLabelValues(string(updated.Status)).Inc()
	s.events.Publish(realtime.VideoEvent(realtime.EventVideoStatus, updated.ID, updated.UserID, updated.TeamID, map[string]any{
		"status": updated.Status,
	}))
	return updated, nil
}

func (s *Service) playbackURL(ctx context.Context, v *video.Video) (string, error) {
	if !v.Uploaded() {
		return "", nil
	}
	if url, ok := s.urls.Get(v.Key); ok {
		return url, nil
	}

	url, err := s.store.PresignGet(ctx, v.Key, s.cfg.PlaybackURLExpiry)
	if err != nil {
		return "", apperrors.Internal(msgPresignPlaybackError, err)
	}
	s.urls.Set(v.Key, url, s.now().Add(s.cfg.PlaybackURLExpiry))
	return url, nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	s.urls.Invalidate(key)
	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("object cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, v *video.Video, action audit.Action, meta map[string]any) {
	s.audit.Record(ctx, &audit.Event{
		ActorID:      &actorID,
		ResourceType: audit.ResourceTypeVideo,
		ResourceID:   &v.ID,
		Action:       action,
		Metadata:     meta,
	})
}

func (s *Service) notifyApprovalRequested(ctx context.Context, actorID uuid.UUID, v *video.Video) {
	if v.TeamID == nil {
		return
	}

	t, err := s.teams.GetByID(ctx, *v.TeamID)
	if err != nil {
		s.logger.Warn("approval email skipped: team lookup failed", zap.String("video_id", v.ID.String()), zap.Error(err))
		return
	}
	if t.OwnerID == actorID {
		return
	}

	owner, err := s.users.GetByID(ctx, t.OwnerID)
	if err != nil {
		s.logger.Warn("approval email skipped: owner lookup failed", zap.String("video_id", v.ID.String()), zap.Error(err))
		return
	}

	err = s.notifier.ApprovalRequested(ctx, notify.ApprovalRequested{
		To:            owner.Email,
		OwnerName:     owner.Name,
		RequesterName: s.displayName(ctx, actorID),
		TeamName:      t.Name,
		VideoID:       v.ID,
		VideoTitle:    v.Filename,
	})
	if err != nil {
		s.logger.Warn("approval request email failed", zap.String("video_id", v.ID.String()), zap.Error(err))
	}
}

func (s *Service) notifyApproved(ctx context.Context, actorID uuid.UUID, v *video.Video) {
	if v.UserID == actorID {
		return
	}

	uploader, err := s.users.GetByID(ctx, v.UserID)
	if err != nil {
		s.logger.Warn("approved email skipped: uploader lookup failed", zap.String("video_id", v.ID.String()), zap.Error(err))
		return
	}

	err = s.notifier.VideoApproved(ctx, notify.VideoApproved{
		To:           uploader.Email,
		UploaderName: uploader.Name,
		ApproverName: s.displayName(ctx, actorID),
		VideoID:      v.ID,
		VideoTitle:   v.Filename,
		Status:       string(v.Status),
	})
	if err != nil {
		s.logger.Warn("approved email failed", zap.String("video_id", v.ID.String()), zap.Error(err))
	}
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
