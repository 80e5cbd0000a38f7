package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rah/rah/internal/platform/auth"
)

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords so login failures stay indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrDuplicateUser is returned when username or email is taken.
var ErrDuplicateUser = errors.New("username or email already exists")

// Service handles login and account administration.
type Service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
	logger   zerolog.Logger
}

// NewService creates a new identity service.
func NewService(repo Repository, secret []byte, tokenTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *Profile, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("login lookup: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		s.logger.Warn().Str("username", username).Msg("failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.secret, user.UserID, user.Username, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user.Profile(), nil
}

// Me returns the profile for an authenticated user id.
func (s *Service) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("me lookup: %w", err)
	}
	if user == nil {
		return nil, errors.New("user not found or inactive")
	}
	return user.Profile(), nil
}

// CreateUser registers a new practitioner account.
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" {
		return errors.New("username and email are required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	existing, err := s.repo.GetByUsername(ctx, u.Username)
	if err != nil {
		return fmt.Errorf("uniqueness check: %w", err)
	}
	if existing != nil {
		return ErrDuplicateUser
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Str("username", u.Username).Msg("user created")
	return nil
}

// ListUsers returns all non-deleted accounts.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// DeactivateUser soft-deletes an account. Existing tokens expire on
// their own; lookups reject the account immediately.
func (s *Service) DeactivateUser(ctx context.Context, userID string) error {
	return s.repo.Deactivate(ctx, userID)
}
