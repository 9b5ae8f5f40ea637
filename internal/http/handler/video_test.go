package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uplora/internal/auth"
	"uplora/internal/domain/video"
	videosvc "uplora/internal/video"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVideos struct {
	mock.Mock
}

func (m *mockVideos) Get(ctx context.Context, v *video.Video) (*videosvc.View, error) {
	args := m.Called(ctx, v)
	res, _ := args.Get(0).(*videosvc.View)
	return res, args.Error(1)
}

func (m *mockVideos) List(ctx context.Context, userID uuid.UUID, in videosvc.ListInput) ([]*videosvc.View, error) {
	args := m.Called(ctx, userID, in)
	res, _ := args.Get(0).([]*videosvc.View)
	return res, args.Error(1)
}

func (m *mockVideos) RequestApproval(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	return m.step(ctx, "RequestApproval", actorID, v)
}

func (m *mockVideos) Approve(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	return m.step(ctx, "Approve", actorID, v)
}

func (m *mockVideos) Reject(ctx context.Context, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	return m.step(ctx, "Reject", actorID, v)
}

func (m *mockVideos) step(ctx context.Context, name string, actorID uuid.UUID, v *video.Video) (*video.Video, error) {
	args := m.MethodCalled(name, ctx, actorID, v)
	res, _ := args.Get(0).(*video.Video)
	return res, args.Error(1)
}

func (m *mockVideos) Delete(ctx context.Context, actorID uuid.UUID, v *video.Video) error {
	return m.Called(ctx, actorID, v).Error(0)
}

func (m *mockVideos) ReplacePresign(ctx context.Context, v *video.Video, in videosvc.ReplacePresignInput) (*videosvc.ReplaceTarget, error) {
	args := m.Called(ctx, v, in)
	res, _ := args.Get(0).(*videosvc.ReplaceTarget)
	return res, args.Error(1)
}

func (m *mockVideos) ReplaceComplete(ctx context.Context, actorID uuid.UUID, v *video.Video, in videosvc.ReplaceCompleteInput) (*video.Video, error) {
	args := m.Called(ctx, actorID, v, in)
	res, _ := args.Get(0).(*video.Video)
	return res, args.Error(1)
}

func videoContext(method, target, body string, userID uuid.UUID, v *video.Video) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(method, target, body, userID)
	c.Set(auth.ContextKeyVideo, v)
	return c, rec
}

func TestVideoHandlerGet(t *testing.T) {
	userID := uuid.New()
	v := &video.Video{ID: uuid.New(), UserID: userID, Key: "k", Status: video.Status("posted")}
	videos := new(mockVideos)
	videos.On("Get", mock.Anything, v).Return(&videosvc.View{Video: v, PlaybackURL: "https://s3.example/k"}, nil)

	c, rec := videoContext(http.MethodGet, "/api/videos/"+v.ID.String(), "", userID, v)
	require.NoError(t, NewVideoHandler(videos).Get(c))

	var body VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, video.StatusPosted, body.Status)
	assert.Equal(t, "https://s3.example/k", body.PlaybackURL)
}

func TestVideoHandlerGetWithoutResolvedVideo(t *testing.T) {
	c, _ := newJSONContext(http.MethodGet, "/api/videos/x", "", uuid.New())
	assertCode(t, NewVideoHandler(new(mockVideos)).Get(c), apperrors.CodeInternal)
}

func TestVideoHandlerList(t *testing.T) {
	userID, teamID := uuid.New(), uuid.New()
	videos := new(mockVideos)
	videos.On("List", mock.Anything, userID, videosvc.ListInput{TeamID: &teamID, Limit: 10}).
		Return([]*videosvc.View{{Video: &video.Video{ID: uuid.New(), TeamID: &teamID, Status: video.StatusProcessing}}}, nil)

	c, rec := newJSONContext(http.MethodGet, "/api/videos?teamId="+teamID.String()+"&limit=10", "", userID)
	require.NoError(t, NewVideoHandler(videos).List(c))

	var body ListVideosResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Videos, 1)
	assert.Equal(t, teamID, *body.Videos[0].TeamID)
}

func TestVideoHandlerApprove(t *testing.T) {
	ownerID := uuid.New()
	v := &video.Video{ID: uuid.New(), UserID: uuid.New(), Status: video.StatusApprovalRequested}
	now := time.Now()
	posted := *v
	posted.Status = video.StatusPosted
	posted.ApprovedByUserID = &ownerID
	posted.ApprovedAt = &now

	videos := new(mockVideos)
	videos.On("Approve", mock.Anything, ownerID, v).Return(&posted, nil)

	c, rec := videoContext(http.MethodPost, "/api/videos/"+v.ID.String()+"/approve", "", ownerID, v)
	require.NoError(t, NewVideoHandler(videos).Approve(c))

	var body VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, video.StatusPosted, body.Status)
	assert.Equal(t, ownerID, *body.ApprovedByUserID)
}

func TestVideoHandlerRejectConflict(t *testing.T) {
	userID := uuid.New()
	v := &video.Video{ID: uuid.New(), Status: video.StatusPosted}
	videos := new(mockVideos)
	videos.On("Reject", mock.Anything, userID, v).Return(nil, apperrors.Conflict("video is not awaiting approval"))

	c, _ := videoContext(http.MethodPost, "/api/videos/"+v.ID.String()+"/reject", "", userID, v)
	assertCode(t, NewVideoHandler(videos).Reject(c), apperrors.CodeConflict)
}

func TestVideoHandlerReplace(t *testing.T) {
	userID := uuid.New()
	v := &video.Video{ID: uuid.New(), UserID: userID, Status: video.StatusPosted}
	videos := new(mockVideos)
	videos.On("ReplacePresign", mock.Anything, v, videosvc.ReplacePresignInput{Filename: "new.mp4", ContentType: "video/mp4", SizeBytes: 42}).
		Return(&videosvc.ReplaceTarget{URL: "https://s3.example/put", Key: "uploads/users/x/new.mp4", ExpiresIn: 15 * time.Minute}, nil)

	c, rec := videoContext(http.MethodPost, "/replace/presign", `{"filename":"new.mp4","contentType":"video/mp4","sizeBytes":42}`, userID, v)
	require.NoError(t, NewVideoHandler(videos).ReplacePresign(c))
	assert.JSONEq(t, `{"url":"https://s3.example/put","key":"uploads/users/x/new.mp4","expiresIn":900}`, rec.Body.String())

	replaced := *v
	replaced.Key = "uploads/users/x/new.mp4"
	replaced.Status = video.StatusProcessing
	videos.On("ReplaceComplete", mock.Anything, userID, v, videosvc.ReplaceCompleteInput{Key: "uploads/users/x/new.mp4", Filename: "new.mp4"}).
		Return(&replaced, nil)

	c, rec = videoContext(http.MethodPost, "/replace/complete", `{"key":"uploads/users/x/new.mp4","filename":"new.mp4"}`, userID, v)
	require.NoError(t, NewVideoHandler(videos).ReplaceComplete(c))

	var body VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, video.StatusProcessing, body.Status)
	assert.Equal(t, "uploads/users/x/new.mp4", body.Key)
}

func TestVideoHandlerDelete(t *testing.T) {
	userID := uuid.New()
	v := &video.Video{ID: uuid.New()}
	videos := new(mockVideos)
	videos.On("Delete", mock.Anything, userID, v).Return(nil)

	c, rec := videoContext(http.MethodDelete, "/delete", "", userID, v)
	require.NoError(t, NewVideoHandler(videos).Delete(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	videos.AssertExpectations(t)
}
