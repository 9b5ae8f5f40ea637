package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"uplora/internal/http/middleware"
	apperrors "uplora/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", apperrors.NotFound("video not found"), http.StatusNotFound, apperrors.CodeNotFound, "video not found"},
		{"forbidden", apperrors.Forbidden("not a member"), http.StatusForbidden, apperrors.CodeForbidden, "not a member"},
		{"unauthorized", apperrors.Unauthorized("missing authorization token"), http.StatusUnauthorized, apperrors.CodeUnauthorized, "missing authorization token"},
		{"validation", apperrors.Validation("filename is required"), http.StatusBadRequest, apperrors.CodeValidation, "filename is required"},
		{"conflict", apperrors.Conflict("invite already used"), http.StatusConflict, apperrors.CodeConflict, "invite already used"},
		{"expired", apperrors.Expired("reset token expired"), http.StatusGone, apperrors.CodeExpired, "reset token expired"},
		{"email exists", apperrors.ErrEmailExists, http.StatusConflict, apperrors.CodeConflict, http.StatusText(http.StatusConflict)},
		{"internal is masked", apperrors.Internal("db exploded", errors.New("dial tcp")), http.StatusInternalServerError, apperrors.CodeInternal, msgInternalServerError},
		{"upstream passes through", apperrors.Upstream("failed to start multipart upload", errors.New("AccessDenied: bucket policy")), http.StatusInternalServerError, apperrors.CodeInternal, "failed to start multipart upload: AccessDenied: bucket policy"},
		{"plain error is masked", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal, msgInternalServerError},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, apperrors.CodeNotFound, "Not Found"},
	}

	handler := NewHTTPErrorHandler(zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			c.Set(middleware.RequestIDContextKey, "req-1")

			handler(tt.err, c)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestHTTPErrorHandlerSkipsCommittedResponses(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "partial"))

	NewHTTPErrorHandler(zap.NewNop())(errors.New("late failure"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
