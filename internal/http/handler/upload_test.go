package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	domain "uplora/internal/domain/upload"
	"uplora/internal/domain/video"
	"uplora/internal/upload"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploads struct {
	mock.Mock
}

func (m *mockUploads) Init(ctx context.Context, userID uuid.UUID, in upload.InitInput) (*upload.InitResult, error) {
	args := m.Called(ctx, userID, in)
	res, _ := args.Get(0).(*upload.InitResult)
	return res, args.Error(1)
}

func (m *mockUploads) Sign(ctx context.Context, userID uuid.UUID, in upload.SignInput) (string, error) {
	args := m.Called(ctx, userID, in)
	return args.String(0), args.Error(1)
}

func (m *mockUploads) Complete(ctx context.Context, userID uuid.UUID, in upload.CompleteInput) (*upload.CompleteResult, error) {
	args := m.Called(ctx, userID, in)
	res, _ := args.Get(0).(*upload.CompleteResult)
	return res, args.Error(1)
}

func (m *mockUploads) PutComplete(ctx context.Context, userID uuid.UUID, key string) (*upload.CompleteResult, error) {
	args := m.Called(ctx, userID, key)
	res, _ := args.Get(0).(*upload.CompleteResult)
	return res, args.Error(1)
}

func (m *mockUploads) Cancel(ctx context.Context, userID uuid.UUID, in upload.CancelInput) error {
	return m.Called(ctx, userID, in).Error(0)
}

func (m *mockUploads) Release(ctx context.Context, userID uuid.UUID) int64 {
	return m.Called(ctx, userID).Get(0).(int64)
}

func (m *mockUploads) ReapStaleLocks(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockUploads) StaleLockAge() time.Duration {
	return time.Hour
}

func TestUploadHandlerInit(t *testing.T) {
	userID, teamID, tempID := uuid.New(), uuid.New(), uuid.New()
	uploads := new(mockUploads)
	uploads.On("Init", mock.Anything, userID, upload.InitInput{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		TeamID:      &teamID,
	}).Return(&upload.InitResult{
		UploadID:    "up-1",
		Key:         "uploads/teams/" + teamID.String() + "/up-1/clip.mp4",
		PartSize:    8 << 20,
		TempID:      tempID,
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		TeamID:      &teamID,
	}, nil)

	c, rec := newJSONContext(http.MethodPost, "/api/s3/multipart/init",
		`{"filename":" clip.mp4 ","contentType":"video/mp4","teamId":"`+teamID.String()+`"}`, userID)

	require.NoError(t, NewUploadHandler(uploads).Init(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up-1", body["uploadId"])
	assert.Equal(t, tempID.String(), body["tempId"])
	assert.Equal(t, teamID.String(), body["teamId"])
	assert.EqualValues(t, 8<<20, body["partSize"])
	uploads.AssertExpectations(t)
}

func TestUploadHandlerInitRejectsBadTeamID(t *testing.T) {
	uploads := new(mockUploads)
	c, _ := newJSONContext(http.MethodPost, "/api/s3/multipart/init",
		`{"filename":"clip.mp4","contentType":"video/mp4","teamId":"nope"}`, uuid.New())

	assertCode(t, NewUploadHandler(uploads).Init(c), apperrors.CodeValidation)
	uploads.AssertNotCalled(t, "Init", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadHandlerRequiresAuthenticatedUser(t *testing.T) {
	c, _ := newJSONContext(http.MethodPost, "/api/s3/multipart/sign", `{"key":"k","uploadId":"u","partNumber":1}`, uuid.Nil)
	assertCode(t, NewUploadHandler(new(mockUploads)).Sign(c), apperrors.CodeUnauthorized)
}

func TestUploadHandlerSign(t *testing.T) {
	userID := uuid.New()
	uploads := new(mockUploads)
	uploads.On("Sign", mock.Anything, userID, upload.SignInput{Key: "k", UploadID: "u", PartNumber: 3}).
		Return("https://s3.example/part-3", nil)

	c, rec := newJSONContext(http.MethodPost, "/api/s3/multipart/sign", `{"key":"k","uploadId":"u","partNumber":3}`, userID)

	require.NoError(t, NewUploadHandler(uploads).Sign(c))
	assert.JSONEq(t, `{"url":"https://s3.example/part-3"}`, rec.Body.String())
}

func TestUploadHandlerComplete(t *testing.T) {
	userID := uuid.New()
	uploaded := time.Now()
	v := &video.Video{ID: uuid.New(), UserID: userID, Key: "k", Status: video.StatusProcessing, UploadedAt: &uploaded}

	uploads := new(mockUploads)
	uploads.On("Complete", mock.Anything, userID, upload.CompleteInput{
		Key:      "k",
		UploadID: "u",
		Parts:    []domain.Part{{PartNumber: 1, ETag: `"e1"`}},
	}).Return(&upload.CompleteResult{Videos: []*video.Video{v}, LocksReleased: 2}, nil)

	c, rec := newJSONContext(http.MethodPost, "/api/s3/multipart/complete",
		`{"key":"k","uploadId":"u","parts":[{"partNumber":1,"etag":"\"e1\""}]}`, userID)

	require.NoError(t, NewUploadHandler(uploads).Complete(c))

	var body CompleteUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body.LocksReleased)
	require.Len(t, body.Videos, 1)
	assert.Equal(t, video.StatusProcessing, body.Videos[0].Status)
}

func TestUploadHandlerCancelAlwaysSucceeds(t *testing.T) {
	userID := uuid.New()
	uploads := new(mockUploads)
	uploads.On("Cancel", mock.Anything, userID, upload.CancelInput{Key: "k", UploadID: "u"}).Return(nil).Twice()

	h := NewUploadHandler(uploads)
	for i := 0; i < 2; i++ {
		c, rec := newJSONContext(http.MethodPost, "/api/s3/multipart/cancel", `{"key":"k","uploadId":"u"}`, userID)
		require.NoError(t, h.Cancel(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	uploads.AssertExpectations(t)
}

func TestUploadHandlerLocks(t *testing.T) {
	userID := uuid.New()
	uploads := new(mockUploads)
	uploads.On("Release", mock.Anything, userID).Return(int64(3))
	uploads.On("ReapStaleLocks", mock.Anything, time.Hour).Return(5, nil)
	h := NewUploadHandler(uploads)

	c, rec := newJSONContext(http.MethodDelete, "/api/s3/lock/release", "", userID)
	require.NoError(t, h.ReleaseLocks(c))
	assert.JSONEq(t, `{"released":3}`, rec.Body.String())

	c, rec = newJSONContext(http.MethodPost, "/api/s3/lock/cleanup", "", userID)
	require.NoError(t, h.CleanupLocks(c))
	assert.JSONEq(t, `{"reaped":5}`, rec.Body.String())
}
