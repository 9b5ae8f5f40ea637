package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"uplora/internal/account"
	"uplora/internal/audit"
	"uplora/internal/domain/user"
	apperrors "uplora/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Signup(ctx context.Context, in account.SignupInput) (*account.Session, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*account.Session)
	return res, args.Error(1)
}

func (m *mockAccounts) Login(ctx context.Context, email, pass string) (*account.Session, error) {
	args := m.Called(ctx, email, pass)
	res, _ := args.Get(0).(*account.Session)
	return res, args.Error(1)
}

func (m *mockAccounts) ForgotPassword(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *mockAccounts) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	return m.Called(ctx, rawToken, newPassword).Error(0)
}

func (m *mockAccounts) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*user.User)
	return res, args.Error(1)
}

func (m *mockAccounts) Activity(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*audit.Event, error) {
	args := m.Called(ctx, userID, limit, offset)
	res, _ := args.Get(0).([]*audit.Event)
	return res, args.Error(1)
}

func TestAuthHandlerSignup(t *testing.T) {
	u := &user.User{ID: uuid.New(), Email: "olivia@example.com", Name: "Olivia", PasswordHash: "$2a$hash"}
	accounts := new(mockAccounts)
	accounts.On("Signup", mock.Anything, account.SignupInput{Email: "olivia@example.com", Name: "Olivia", Password: "correct horse"}).
		Return(&account.Session{User: u, Token: "jwt", ExpiresIn: time.Hour}, nil)

	c, rec := newJSONContext(http.MethodPost, "/auth/signup", `{"email":"olivia@example.com","name":"Olivia","password":"correct horse"}`, uuid.Nil)
	require.NoError(t, NewAuthHandler(accounts).Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jwt", body.Token)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.NotContains(t, rec.Body.String(), "$2a$hash")
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("Login", mock.Anything, "olivia@example.com", "wrong").Return(nil, apperrors.InvalidCredentials())

	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"email":"olivia@example.com","password":"wrong"}`, uuid.Nil)
	assertCode(t, NewAuthHandler(accounts).Login(c), apperrors.CodeUnauthorized)
}

func TestAuthHandlerForgotPasswordAlwaysOK(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("ForgotPassword", mock.Anything, "nobody@example.com").Return()

	c, rec := newJSONContext(http.MethodPost, "/auth/password/forgot", `{"email":"nobody@example.com"}`, uuid.Nil)
	require.NoError(t, NewAuthHandler(accounts).ForgotPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	accounts.AssertExpectations(t)
}

func TestAuthHandlerResetPasswordReuse(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("ResetPassword", mock.Anything, "tok", "new password").Return(apperrors.Expired("reset token expired"))

	c, _ := newJSONContext(http.MethodPost, "/auth/password/reset", `{"token":"tok","password":"new password"}`, uuid.Nil)
	assertCode(t, NewAuthHandler(accounts).ResetPassword(c), apperrors.CodeExpired)
}

func TestAuthHandlerActivity(t *testing.T) {
	userID := uuid.New()
	accounts := new(mockAccounts)
	accounts.On("Activity", mock.Anything, userID, 5, 0).
		Return([]*audit.Event{{ID: uuid.New(), Action: audit.ActionLogin, Status: audit.StatusSuccess}}, nil)

	c, rec := newJSONContext(http.MethodGet, "/api/me/activity?limit=5", "", userID)
	require.NoError(t, NewAuthHandler(accounts).Activity(c))

	var body ActivityListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, audit.ActionLogin, body.Events[0].Action)
}
