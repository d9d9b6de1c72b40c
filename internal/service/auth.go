package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/auth"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// AuthService handles registration, sign-in and sign-out.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt), Revoker
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoker   auth.Revoker
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoker auth.Revoker,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		revoker:   revoker,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

var errEmailTaken = apperror.ValidationFailed("email", "this email address is already registered")

// Register creates an account with default settings. The checks run in a
// fixed order: presence, then email availability, then password strength.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, errEmailTaken
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.CheckStrength(password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUserWithSettings(ctx, user, model.NewDefaultSettings("")); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks the password and issues a token. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, err
	}

	return s.issue(user, "password")
}

// LoginOrRegisterGoogle signs in the account matching the Google email,
// creating it (without a password) on first sign-in.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil || gu.Email == "" {
		return nil, fmt.Errorf("service/auth: Google user must have an email")
	}

	user, err := s.users.GetUserByEmail(ctx, gu.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &model.User{Email: gu.Email}
		err = s.users.CreateUserWithSettings(ctx, user, model.NewDefaultSettings(""))
		if errors.Is(err, apperror.ErrConflict) {
			user, err = s.users.GetUserByEmail(ctx, gu.Email)
		} else if err == nil {
			s.logger.Info("user registered via Google", slog.String("userID", user.ID))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving Google user: %w", err)
	}

	return s.issue(user, "google")
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("user logged out", slog.String("userID", claims.UserID))
	return nil
}

// GetUserByID backs GET /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// TokenTTL is how long issued tokens live; the handler uses it for the
// cookie's Max-Age.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
