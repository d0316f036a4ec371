// Package service: authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Two ways in:
//   - the registration/login forms (username + bcrypt password)
//   - GitHub OAuth, when configured (upsert by GitHub ID)
//
// Both end the same way: a session JWT the handler puts in the cookie.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// Messages shown to the user by the auth forms.
const (
	MsgBadCredentials = "Please enter a correct username and password."
	MsgUsernameTaken  = "A user with that username already exists."
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can set
// the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SessionTTL is the lifetime of issued tokens; the cookie uses the same value.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// Register validates the sign-up form, creates the user (and its profile) and
// signs them in.
//
// A taken username is reported as a validation error on the "username" field,
// so the handler re-renders the form exactly like any other input mistake.
func (s *AuthService) Register(ctx context.Context, f form.Registration) (*AuthResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(f.Password1)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     f.Username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", MsgUsernameTaken)
		}
		s.logger.Error("failed to register user",
			slog.String("username", f.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user %s: %w", f.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login checks username and password.
//
// Unknown username and wrong password produce the same non-field error so the
// form does not reveal which usernames exist.
func (s *AuthService) Login(ctx context.Context, f form.Login) (*AuthResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, f.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed(form.NonField, MsgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", f.Username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, f.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("failed login", slog.String("username", f.Username))
			return nil, apperror.ValidationFailed(form.NonField, MsgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", f.Username, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
//  1. Upsert the user by GitHub ID (create + profile on first login, refresh
//     email/avatar afterwards)
//  2. Issue a session token
//
// If the GitHub login collides with an existing blog username, the new account
// is created as "<login>-<githubID>" instead.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		Username:  ghUser.Login,
		GitHubID:  ghUser.ID,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	err := s.users.Upsert(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user.Username = fmt.Sprintf("%s-%d", ghUser.Login, ghUser.ID)
		err = s.users.Upsert(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// GetUserByID returns the user for the given internal ID.
// Used to load the signed-in user after the middleware validated the session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
