package http

import (
	"errors"
	"fmt"
	"net/http"

	"uplora/internal/http/middleware"
	apperrors "uplora/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	msgInternalServerError = "internal server error"
	unknownRequestID       = "unknown"
)

var statusByCode = map[string]int{
	apperrors.CodeUnauthorized: http.StatusUnauthorized,
	apperrors.CodeForbidden:    http.StatusForbidden,
	apperrors.CodeNotFound:     http.StatusNotFound,
	apperrors.CodeValidation:   http.StatusBadRequest,
	apperrors.CodeConflict:     http.StatusConflict,
	apperrors.CodeExpired:      http.StatusGone,
	apperrors.CodeInternal:     http.StatusInternalServerError,
}

var codeByStatus = map[int]string{
	http.StatusBadRequest:            apperrors.CodeValidation,
	http.StatusUnauthorized:          apperrors.CodeUnauthorized,
	http.StatusForbidden:             apperrors.CodeForbidden,
	http.StatusNotFound:              apperrors.CodeNotFound,
	http.StatusMethodNotAllowed:      apperrors.CodeNotFound,
	http.StatusConflict:              apperrors.CodeConflict,
	http.StatusGone:                  apperrors.CodeExpired,
	http.StatusRequestEntityTooLarge: apperrors.CodeValidation,
	http.StatusUnsupportedMediaType:  apperrors.CodeValidation,
	http.StatusTooManyRequests:       "RATE_LIMITED",
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// NewHTTPErrorHandler renders every error as {error, code, request_id}.
// Server errors are logged with their cause and reach the client masked
// unless the error is marked public.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, public := describe(err)

		body.RequestID = middleware.GetRequestID(c)
		if body.RequestID == "" {
			body.RequestID = unknownRequestID
		}

		if status >= http.StatusInternalServerError {
			log.Error("internal_server_error",
				zap.String("request_id", body.RequestID),
				zap.Int("status", status),
				zap.Error(err))
			if !public {
				body.Error = msgInternalServerError
			}
		} else {
			log.Debug("client_error",
				zap.String("request_id", body.RequestID),
				zap.Int("status", status),
				zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			log.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}

func describe(err error) (int, errorResponse, bool) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code, ok := codeByStatus[httpErr.Code]
		if !ok {
			code = apperrors.CodeInternal
		}
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = fmt.Sprint(httpErr.Message)
		}
		return httpErr.Code, errorResponse{Error: msg, Code: code}, false
	}

	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Public {
			return status, errorResponse{Error: appErr.Error(), Code: code}, true
		}
		if appErr.Message != "" {
			msg = appErr.Message
		}
	}
	return status, errorResponse{Error: msg, Code: code}, false
}
