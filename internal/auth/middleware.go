package auth

import (
	"net/http"
	"strings"

	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	jwtService *JWTService
}

func NewMiddleware(jwtService *JWTService) *Middleware {
	return &Middleware{jwtService: jwtService}
}

// RequireJWT authenticates the bearer token and stores the caller in the
// echo context. EventSource cannot send headers, so GET requests may pass
// the token as ?access_token= instead.
func (m *Middleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" && c.Request().Method == http.MethodGet {
				token = strings.TrimSpace(c.QueryParam(queryAccessToken))
			}
			if token == "" {
				return apperrors.Unauthorized(msgMissingAuthorization)
			}

			claims, err := m.jwtService.Verify(token)
			if err != nil {
				return apperrors.Unauthorized(msgInvalidOrExpiredToken)
			}

			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyEmail, claims.Email)

			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}

func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID := c.Get(ContextKeyUserID)
	if userID == nil {
		return uuid.Nil, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.Internal(msgInvalidUserIDCtx, nil)
	}

	return id, nil
}

func GetEmail(c echo.Context) string {
	email, _ := c.Get(ContextKeyEmail).(string)
	return email
}
