// Package account handles signup, login, password recovery and the
// caller's own profile.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"uplora/internal/audit"
	"uplora/internal/config"
	"uplora/internal/domain/team"
	"uplora/internal/domain/user"
	"uplora/internal/notify"
	apperrors "uplora/pkg/errors"
	"uplora/pkg/password"
	"uplora/pkg/token"
	"uplora/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgTokenRequired = "token is required"
	msgHashFailed    = "failed to hash password"
	msgTokenFailed   = "failed to issue token"

	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type UserStore interface {
	Create(ctx context.Context, input user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

type ResetStore interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*user.PasswordResetToken, error)
}

type PasswordResetter interface {
	ResetPasswordTransaction(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
}

type TokenIssuer interface {
	Generate(userID uuid.UUID, email string) (string, error)
	Expiry() time.Duration
}

// ActivityLog is the audit store as seen by the account owner.
type ActivityLog interface {
	Record(ctx context.Context, event *audit.Event)
	Failure(ctx context.Context, event *audit.Event, err error)
	Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Event, error)
}

type Dependencies struct {
	Users    UserStore
	Resets   ResetStore
	Tx       PasswordResetter
	Tokens   TokenIssuer
	Notifier notify.Notifier
	Audit    ActivityLog
	App      config.AppConfig
	Logger   *zap.Logger
}

type Service struct {
	users    UserStore
	resets   ResetStore
	tx       PasswordResetter
	tokens   TokenIssuer
	notifier notify.Notifier
	audit    ActivityLog
	app      config.AppConfig
	logger   *zap.Logger
	now      func() time.Time
	pending  sync.WaitGroup
}

func NewService(deps Dependencies) *Service {
	return &Service{
		users:    deps.Users,
		resets:   deps.Resets,
		tx:       deps.Tx,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		app:      deps.App,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Session is a signed-in user and their bearer token.
type Session struct {
	User      *user.User
	Token     string
	ExpiresIn time.Duration
}

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := team.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if err := validator.Email(email); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.PersonName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.Password(in.Password); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Internal(msgHashFailed, err)
	}

	u, err := s.users.Create(ctx, user.CreateUserInput{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return nil, err
	}

	s.record(ctx, u.ID, audit.ActionSignup)
	return s.session(u)
}

// Login verifies credentials. Unknown emails burn a bcrypt comparison so
// they cost as much as a wrong password.
func (s *Service) Login(ctx context.Context, email, pass string) (*Session, error) {
	email = team.NormalizeEmail(email)
	if email == "" || pass == "" {
		return nil, apperrors.InvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			password.Equalize(pass)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}

	if u.PasswordHash == "" {
		password.Equalize(pass)
		return nil, s.loginFailed(ctx, u.ID)
	}
	if !password.Verify(pass, u.PasswordHash) {
		return nil, s.loginFailed(ctx, u.ID)
	}

	s.record(ctx, u.ID, audit.ActionLogin)
	return s.session(u)
}

// ForgotPassword never reveals whether the email is registered. The
// lookup is the only work done before returning; issuing the token and
// mailing it happen in the background so both outcomes take the same time.
// Failures are logged and swallowed.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	email = team.NormalizeEmail(email)
	if validator.Email(email) != nil {
		return
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("password reset lookup failed", zap.Error(err))
		}
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.sendPasswordReset(context.WithoutCancel(ctx), u)
	}()
}

// Wait blocks until background password reset deliveries have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) sendPasswordReset(ctx context.Context, u *user.User) {
	raw, err := token.GenerateURLToken()
	if err != nil {
		s.logger.Error("password reset token generation failed", zap.Error(err))
		return
	}

	if _, err := s.resets.Create(ctx, u.ID, token.Hash(raw), s.now().Add(s.app.PasswordResetExpiry)); err != nil {
		s.logger.Error("password reset token store failed", zap.String("user_id", u.ID.String()), zap.Error(err))
		return
	}

	err = s.notifier.PasswordReset(ctx, notify.PasswordReset{
		To:        u.Email,
		UserName:  u.Name,
		Token:     raw,
		ExpiresIn: s.app.PasswordResetExpiry,
	})
	if err != nil {
		s.logger.Warn("password reset email failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
}

// ResetPassword consumes a reset token. A used or expired token is
// reported as EXPIRED.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" {
		return apperrors.Validation(msgTokenRequired)
	}
	if err := validator.Password(newPassword); err != nil {
		return apperrors.Validation(err.Error())
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperrors.Internal(msgHashFailed, err)
	}

	userID, err := s.tx.ResetPasswordTransaction(ctx, token.Hash(rawToken), hash, s.now())
	if err != nil {
		return err
	}

	s.record(ctx, userID, audit.ActionPasswordReset)
	return nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Activity lists the caller's own audit trail, newest first.
func (s *Service) Activity(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*audit.Event, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.audit.Query(ctx, audit.QueryFilter{ActorID: &userID, Limit: limit, Offset: offset})
}

func (s *Service) session(u *user.User) (*Session, error) {
	signed, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return nil, apperrors.Internal(msgTokenFailed, err)
	}
	return &Session{User: u, Token: signed, ExpiresIn: s.tokens.Expiry()}, nil
}

// loginFailed audits a rejected login on a known account and returns the
// same error an unknown email gets.
func (s *Service) loginFailed(ctx context.Context, userID uuid.UUID) error {
	err := apperrors.InvalidCredentials()
	s.audit.Failure(ctx, &audit.Event{
		ActorID:      &userID,
		ResourceType: audit.ResourceTypeUser,
		ResourceID:   &userID,
		Action:       audit.ActionLogin,
	}, err)
	return err
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, action audit.Action) {
	s.audit.Record(ctx, &audit.Event{
		ActorID:      &userID,
		ResourceType: audit.ResourceTypeUser,
		ResourceID:   &userID,
		Action:       action,
	})
}
