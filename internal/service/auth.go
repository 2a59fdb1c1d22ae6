package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/metrics"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
)

// TokenTypeBearer is the token_type reported with every session.
const TokenTypeBearer = "bearer"

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	ExpiresIn   time.Duration
}

// AuthService handles registration, login and token authentication.
type AuthService struct {
	users    UserStore
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	tokenTTL time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users UserStore,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	tokenTTL time.Duration,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates an account. An email already in use yields
// ErrDuplicateAccount, whose message does not confirm the address exists.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateAccountPassword(password); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateAccount
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, s.storageError(ctx, "lookup user by email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalid("password", "must be at most 72 bytes")
		}
		return nil, s.storageError(ctx, "hash password", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateAccount
		}
		return nil, s.storageError(ctx, "create user", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return user, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords fail identically with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.DummyVerify(password)
			s.metrics.IncLogin(metrics.LoginInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncLogin(metrics.LoginError)
		return nil, s.storageError(ctx, "lookup user by email", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.IncLogin(metrics.LoginInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, s.tokenTTL)
	if err != nil {
		s.metrics.IncLogin(metrics.LoginError)
		return nil, s.storageError(ctx, "issue token", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)

	return &Session{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		ExpiresIn:   s.tokenTTL,
	}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.metrics.IncTokenRejected(metrics.TokenExpired)
			return nil, ErrTokenExpired
		}
		s.metrics.IncTokenRejected(metrics.TokenInvalid)
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncTokenRejected(metrics.TokenInvalid)
			return nil, ErrInvalidCredentials
		}
		return nil, s.storageError(ctx, "lookup user by ID", err)
	}

	return user, nil
}

func (s *AuthService) storageError(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "auth storage failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return ErrStorage
}
