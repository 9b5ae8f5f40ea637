package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contentTypeJSON          = "application/json"
	maxStrictBodyBytes int64 = 1 << 20 // Keep parser bound aligned with global body limit.
)

// bindStrictJSON decodes exactly one JSON object and rejects unknown
// fields.
func bindStrictJSON(c echo.Context, dst interface{}) error {
	if !strings.HasPrefix(strings.ToLower(c.Request().Header.Get(echo.HeaderContentType)), contentTypeJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, msgContentTypeJSONRequired)
	}

	body := io.LimitReader(c.Request().Body, maxStrictBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return apperrors.Validation(msgInvalidRequestBody)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperrors.Validation(msgInvalidRequestBody)
	}

	return nil
}

func parseUUIDParam(c echo.Context, name, msg string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation(msg)
	}
	return id, nil
}

// parseOptionalUUID returns nil for an empty string.
func parseOptionalUUID(raw, msg string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation(msg)
	}
	return &id, nil
}

// pagination reads ?limit= and ?offset=. Missing values are zero and left
// for the service to default.
func pagination(c echo.Context) (int, int, error) {
	limit, err := queryInt(c, queryLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, queryOffset)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(msgInvalidPagination)
	}
	return n, nil
}
