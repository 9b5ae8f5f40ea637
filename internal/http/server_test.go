package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uplora/internal/account"
	"uplora/internal/audit"
	"uplora/internal/auth"
	"uplora/internal/config"
	"uplora/internal/domain/user"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "a-test-secret-with-enough-entropy-1234567890"

type stubAccounts struct {
	users map[uuid.UUID]*user.User
}

func (s stubAccounts) Signup(context.Context, account.SignupInput) (*account.Session, error) {
	return nil, apperrors.Validation("signup disabled")
}

func (s stubAccounts) Login(context.Context, string, string) (*account.Session, error) {
	return nil, apperrors.InvalidCredentials()
}

func (s stubAccounts) ForgotPassword(context.Context, string) {}

func (s stubAccounts) ResetPassword(context.Context, string, string) error {
	return apperrors.Expired("reset token expired")
}

func (s stubAccounts) Me(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return u, nil
}

func (s stubAccounts) Activity(context.Context, uuid.UUID, int, int) ([]*audit.Event, error) {
	return nil, nil
}

func newTestServer(t *testing.T, accounts stubAccounts, metricsEnabled bool) (*Server, *auth.JWTService) {
	t.Helper()
	jwt := auth.NewJWTService(testSecret, time.Hour)
	cfg := &config.Config{
		Server:  config.ServerConfig{ReadTimeout: time.Second},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled},
	}
	srv := NewServer(&ServerDependencies{
		Config:         cfg,
		Logger:         zap.NewNop(),
		Metrics:        metrics.New(),
		AuthMiddleware: auth.NewMiddleware(jwt),
		Access:         auth.NewAccessMiddleware(nil, nil, nil),
		Accounts:       accounts,
	})
	return srv, jwt
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerHealth(t *testing.T) {
	srv, _ := newTestServer(t, stubAccounts{}, false)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServerRequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t, stubAccounts{}, false)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeUnauthorized, body.Code)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), body.RequestID)
}

func TestServerMe(t *testing.T) {
	u := &user.User{ID: uuid.New(), Email: "olivia@example.com", Name: "Olivia"}
	srv, jwt := newTestServer(t, stubAccounts{users: map[uuid.UUID]*user.User{u.ID: u}}, false)
	token, err := jwt.Generate(u.ID, u.Email)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"olivia@example.com"`)
}

func TestServerAuthRoutesUseErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, stubAccounts{}, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/password/reset", strings.NewReader(`{"token":"t","password":"longenough"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(srv, req)

	require.Equal(t, http.StatusGone, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeExpired, body.Code)
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, stubAccounts{}, true)
	serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uplora_http_requests_total")

	srv, _ = newTestServer(t, stubAccounts{}, false)
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
