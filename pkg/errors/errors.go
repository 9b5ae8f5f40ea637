package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is()
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("resource conflict")
	ErrExpired            = errors.New("resource expired")
	ErrInternal           = errors.New("internal error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

// Public error codes returned in the JSON envelope.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeExpired      = "EXPIRED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError carries a public code and message alongside the wrapped cause.
// Public marks a server error whose full text may reach the client.
type AppError struct {
	Code    string
	Message string
	Err     error
	Public  bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(msg string) *AppError {
	return &AppError{Code: CodeNotFound, Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Err: ErrForbidden}
}

func Validation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Err: ErrValidation}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Err: ErrConflict}
}

func Expired(msg string) *AppError {
	return &AppError{Code: CodeExpired, Message: msg, Err: ErrExpired}
}

// Internal wraps an unexpected failure. The message is never shown to clients.
func Internal(msg string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return &AppError{Code: CodeInternal, Message: msg, Err: err}
}

// Upstream wraps a failure reported by an external service. Unlike
// Internal, the cause is passed through to the client.
func Upstream(msg string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return &AppError{Code: CodeInternal, Message: msg, Err: err, Public: true}
}

func InvalidCredentials() *AppError {
	return &AppError{Code: CodeUnauthorized, Message: "invalid email or password", Err: ErrInvalidCredentials}
}

// CodeOf returns the public code for err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrEmailExists):
		return CodeConflict
	case errors.Is(err, ErrExpired):
		return CodeExpired
	default:
		return CodeInternal
	}
}
