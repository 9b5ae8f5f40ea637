package handler

import (
	"net/http"

	"uplora/internal/account"
	"uplora/internal/auth"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
}

func newSessionResponse(s *account.Session) SessionResponse {
	return SessionResponse{
		User:      newUserResponse(s.User),
		Token:     s.Token,
		ExpiresIn: int(s.ExpiresIn.Seconds()),
	}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	session, err := h.accounts.Signup(c.Request().Context(), account.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newSessionResponse(session))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	session, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newSessionResponse(session))
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	h.accounts.ForgotPassword(c.Request().Context(), req.Email)
	return respondMessage(c, http.StatusOK, msgPasswordResetRequested)
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgPasswordUpdated)
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	u, err := h.accounts.Me(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newUserResponse(u))
}

type ActivityListResponse struct {
	Events []ActivityResponse `json:"events"`
}

func (h *AuthHandler) Activity(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	events, err := h.accounts.Activity(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return err
	}

	out := make([]ActivityResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newActivityResponse(e))
	}
	return c.JSON(http.StatusOK, ActivityListResponse{Events: out})
}
