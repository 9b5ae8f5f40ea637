package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"uplora/internal/audit"
	"uplora/internal/config"
	"uplora/internal/domain/team"
	domain "uplora/internal/domain/upload"
	"uplora/internal/domain/user"
	"uplora/internal/domain/video"
	"uplora/internal/infra/cache"
	"uplora/internal/notify"
	"uplora/internal/rbac"
	"uplora/internal/realtime"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockStore) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) ObjectSize(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

type memVideos struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*video.Video
}

func (m *memVideos) put(v *video.Video) *video.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.videos[v.ID] = &cp
	return v
}

func (m *memVideos) List(_ context.Context, filter video.ListFilter) ([]*video.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*video.Video
	for _, v := range m.videos {
		if filter.TeamID != nil {
			if v.TeamID != nil && *v.TeamID == *filter.TeamID {
				out = append(out, v)
			}
			continue
		}
		if v.TeamID == nil && v.UserID == filter.UserID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVideos) UpdateStatus(_ context.Context, id uuid.UUID, in video.StatusUpdate) (*video.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, apperrors.NotFound("video not found")
	}
	v.Status = in.Status
	if in.RequestedByUserID != nil {
		v.RequestedByUserID = in.RequestedByUserID
	}
	if in.ApprovedByUserID != nil {
		v.ApprovedByUserID = in.ApprovedByUserID
	}
	if in.ApprovedAt != nil {
		v.ApprovedAt = in.ApprovedAt
	}
	cp := *v
	return &cp, nil
}

func (m *memVideos) ReplaceFile(_ context.Context, id uuid.UUID, in video.ReplaceFileInput) (*video.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, apperrors.NotFound("video not found")
	}
	v.Key = in.Key
	v.Filename = in.Filename
	if in.SizeBytes > 0 {
		v.SizeBytes = in.SizeBytes
	}
	v.Status = video.StatusProcessing
	v.RequestedByUserID, v.ApprovedByUserID, v.ApprovedAt = nil, nil, nil
	cp := *v
	return &cp, nil
}

func (m *memVideos) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return apperrors.NotFound("video not found")
	}
	delete(m.videos, id)
	return nil
}

type directory struct {
	teams map[uuid.UUID]*team.Team
	users map[uuid.UUID]*user.User
}

func (d *directory) GetByID(_ context.Context, id uuid.UUID) (*team.Team, error) {
	if t, ok := d.teams[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFound("team not found")
}

type userDirectory struct{ *directory }

func (d userDirectory) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

type allowAll struct{ err error }

func (a allowAll) AuthorizeTeam(context.Context, uuid.UUID, uuid.UUID, rbac.Resource, rbac.Action) (team.Role, error) {
	return team.RoleEditor, a.err
}

type recorder struct {
	mu        sync.Mutex
	events    []realtime.Event
	audits    []*audit.Event
	approved  []notify.VideoApproved
	requested []notify.ApprovalRequested
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Record(_ context.Context, e *audit.Event) {
	r.mu.Lock()
	r.audits = append(r.audits, e)
	r.mu.Unlock()
}

func (r *recorder) VideoApproved(_ context.Context, msg notify.VideoApproved) error {
	r.approved = append(r.approved, msg)
	return nil
}

func (r *recorder) ApprovalRequested(_ context.Context, msg notify.ApprovalRequested) error {
	r.requested = append(r.requested, msg)
	return nil
}

func (r *recorder) TeamInvite(context.Context, notify.TeamInvite) error       { return nil }
func (r *recorder) PasswordReset(context.Context, notify.PasswordReset) error { return nil }

type fixture struct {
	svc    *Service
	store  *mockStore
	videos *memVideos
	rec    *recorder
	owner  *user.User
	editor *user.User
	team   *team.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := &user.User{ID: uuid.New(), Email: "owner@example.com", Name: "Olivia"}
	editor := &user.User{ID: uuid.New(), Email: "editor@example.com", Name: "Eddie"}
	tm := &team.Team{ID: uuid.New(), Name: "Studio", OwnerID: owner.ID}
	dir := &directory{
		teams: map[uuid.UUID]*team.Team{tm.ID: tm},
		users: map[uuid.UUID]*user.User{owner.ID: owner, editor.ID: editor},
	}

	f := &fixture{
		store:  &mockStore{},
		videos: &memVideos{videos: map[uuid.UUID]*video.Video{}},
		rec:    &recorder{},
		owner:  owner,
		editor: editor,
		team:   tm,
	}
	f.svc = NewService(Dependencies{
		Store:    f.store,
		Videos:   f.videos,
		Teams:    dir,
		Users:    userDirectory{dir},
		Access:   allowAll{},
		URLs:     cache.NewURLCache(),
		Notifier: f.rec,
		Events:   f.rec,
		Audit:    f.rec,
		Metrics:  metrics.New(),
		Config: config.UploadConfig{
			PutURLExpiry:      15 * time.Minute,
			PlaybackURLExpiry: time.Hour,
			MaxSize:           1 << 30,
		},
		Logger: zap.NewNop(),
	})
	return f
}

func (f *fixture) teamVideo(status video.Status) *video.Video {
	uploaded := time.Now().Add(-time.Minute)
	teamID := f.team.ID
	id := uuid.NewString()
	return f.videos.put(&video.Video{
		ID:         uuid.New(),
		UserID:     f.editor.ID,
		TeamID:     &teamID,
		Key:        domain.ObjectKey(f.editor.ID, &teamID, id, "clip.mp4"),
		Filename:   "clip.mp4",
		Status:     status,
		UploadedAt: &uploaded,
	})
}

func TestApproveRunsPublishStep(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusApprovalRequested)

	got, err := f.svc.Approve(context.Background(), f.owner.ID, v)
	require.NoError(t, err)
	assert.Equal(t, video.StatusPosted, got.Status)
	assert.Equal(t, f.owner.ID, *got.ApprovedByUserID)
	require.NotNil(t, got.ApprovedAt)

	require.Len(t, f.rec.events, 2)
	assert.Equal(t, video.StatusApprovalApproved, f.rec.events[0].Payload["status"])
	assert.Equal(t, video.StatusPosted, f.rec.events[1].Payload["status"])
	assert.Equal(t, f.team.ID, *f.rec.events[1].TeamID)

	require.Len(t, f.rec.approved, 1)
	assert.Equal(t, "editor@example.com", f.rec.approved[0].To)
	assert.Equal(t, "Olivia", f.rec.approved[0].ApproverName)
	assert.Equal(t, string(video.StatusPosted), f.rec.approved[0].Status)
}

func TestApproveSchedulesFutureVideos(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusApprovalRequested)
	later := time.Now().Add(24 * time.Hour)
	f.videos.videos[v.ID].ScheduledFor = &later

	got, err := f.svc.Approve(context.Background(), f.owner.ID, v)
	require.NoError(t, err)
	assert.Equal(t, video.StatusScheduled, got.Status)
}

func TestApprovePostedVideoConflicts(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)

	_, err := f.svc.Approve(context.Background(), f.owner.ID, v)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.rec.events)
}

func TestRequestApprovalEmailsOwner(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusReadyToPublish)

	got, err := f.svc.RequestApproval(context.Background(), f.editor.ID, v)
	require.NoError(t, err)
	assert.Equal(t, video.StatusApprovalRequested, got.Status)
	assert.Equal(t, f.editor.ID, *got.RequestedByUserID)

	require.Len(t, f.rec.requested, 1)
	msg := f.rec.requested[0]
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "Eddie", msg.RequesterName)
	assert.Equal(t, "Studio", msg.TeamName)
	require.Len(t, f.rec.audits, 1)
	assert.Equal(t, audit.ActionRequestApproval, f.rec.audits[0].Action)
}

func TestReject(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reject(context.Background(), f.owner.ID, f.teamVideo(video.StatusProcessing))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := f.svc.Reject(context.Background(), f.owner.ID, f.teamVideo(video.StatusApprovalRequested))
	require.NoError(t, err)
	assert.Equal(t, video.StatusReadyToPublish, got.Status)
}

func TestDeleteRemovesRowThenBlobs(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)
	thumb := "thumbs/" + v.ID.String() + ".jpg"
	v.ThumbnailKey = &thumb

	f.store.On("DeleteObject", mock.Anything, v.Key).Return(errors.New("s3 unavailable")).Once()
	f.store.On("DeleteObject", mock.Anything, thumb).Return(nil).Once()

	require.NoError(t, f.svc.Delete(context.Background(), f.owner.ID, v))
	assert.Empty(t, f.videos.videos)

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, realtime.EventVideoDeleted, f.rec.events[0].Type)
	assert.Equal(t, v.ID, f.rec.events[0].Payload["id"])
	f.store.AssertExpectations(t)

	err := f.svc.Delete(context.Background(), f.owner.ID, v)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetCachesPlaybackURL(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)
	f.store.On("PresignGet", mock.Anything, v.Key, time.Hour).Return("https://play/1", nil).Once()

	for i := 0; i < 3; i++ {
		view, err := f.svc.Get(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, "https://play/1", view.PlaybackURL)
	}
	f.store.AssertExpectations(t)
}

func TestGetSkipsUnuploadedVideos(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusProcessing)
	v.UploadedAt = nil

	view, err := f.svc.Get(context.Background(), v)
	require.NoError(t, err)
	assert.Empty(t, view.PlaybackURL)
	f.store.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
}

func TestListRequiresTeamAccess(t *testing.T) {
	f := newFixture(t)
	f.svc.access = allowAll{err: apperrors.NotFound("team not found")}

	_, err := f.svc.List(context.Background(), f.editor.ID, ListInput{TeamID: &f.team.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReplacePresign(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)
	f.store.On("PresignPut", mock.Anything, mock.AnythingOfType("string"), "video/mp4", 15*time.Minute).
		Return("https://put", nil).Once()

	target, err := f.svc.ReplacePresign(context.Background(), v, ReplacePresignInput{
		Filename: "new cut.mp4", ContentType: "video/mp4", SizeBytes: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://put", target.URL)
	assert.True(t, domain.InScope(target.Key, v.UserID, v.TeamID))
	assert.Contains(t, target.Key, "new-cut.mp4")

	_, err = f.svc.ReplacePresign(context.Background(), v, ReplacePresignInput{
		Filename: "x.mp4", ContentType: "video/mp4", SizeBytes: 2 << 30,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReplaceCompleteRejectsForeignKey(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)

	other := domain.ObjectKey(uuid.New(), nil, uuid.NewString(), "clip.mp4")
	_, err := f.svc.ReplaceComplete(context.Background(), f.owner.ID, v, ReplaceCompleteInput{Key: other, Filename: "clip.mp4"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReplaceCompleteResetsLifecycle(t *testing.T) {
	f := newFixture(t)
	v := f.teamVideo(video.StatusPosted)
	newKey := domain.ObjectKey(v.UserID, v.TeamID, uuid.NewString(), "v2.mp4")

	f.store.On("ObjectSize", mock.Anything, newKey).Return(int64(2048), nil).Once()
	f.store.On("DeleteObject", mock.Anything, v.Key).Return(nil).Once()

	got, err := f.svc.ReplaceComplete(context.Background(), f.owner.ID, v, ReplaceCompleteInput{Key: newKey, Filename: "v2.mp4"})
	require.NoError(t, err)
	assert.Equal(t, newKey, got.Key)
	assert.Equal(t, video.StatusProcessing, got.Status)
	assert.Equal(t, int64(2048), got.SizeBytes)
	assert.Nil(t, got.ApprovedByUserID)

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, realtime.EventVideoReplaced, f.rec.events[0].Type)
	f.store.AssertExpectations(t)
}
