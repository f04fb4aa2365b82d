package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// AuthService handles registration, login and token refresh.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService / PasswordService
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

// AuthResult bundles the user and the issued tokens so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User   *model.User
	Tokens auth.TokenPair
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a password account.
//
// The username lookup gives a friendly Conflict for the common case; the
// UNIQUE constraint in the store catches the race where two requests pass
// the lookup at once.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, usernameTaken()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, usernameTaken()
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks a username/password pair and issues tokens.
// Every failure is the same Unauthorized so callers cannot probe which
// usernames exist.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidCredentials()
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.BurnCompare(password)
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !user.HasPassword() {
		s.passwords.BurnCompare(password)
		return nil, invalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("username", username))
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	return s.issue(user, "password")
}

// Refresh trades a valid refresh token for a new pair.
// The user is re-read so deleted accounts cannot keep refreshing.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	id, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, apperror.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return auth.TokenPair{}, apperror.Unauthorized("invalid or expired refresh token")
		}
		return auth.TokenPair{}, fmt.Errorf("looking up user: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issuing tokens: %w", err)
	}
	return pair, nil
}

// Me returns the user for the given internal ID.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.users.GetUserByID(ctx, userID)
}

// LoginWithGitHub finds the account linked to the GitHub user or creates
// one, then issues tokens.
//
// New accounts take the GitHub login as username. If a password account
// already owns that name, a short unique suffix is appended instead of
// linking the two (that would let a GitHub user take over the account).
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, apperror.ValidationFailed("github", "GitHub user is required")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.issue(user, "github")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up GitHub user %d: %w", gh.ID, err)
	}

	user = &model.User{Username: gh.Login, Email: gh.Email, GitHubID: gh.ID}
	if _, err := s.users.GetUserByUsername(ctx, gh.Login); err == nil {
		user.Username = suffixed(gh.Login)
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("creating GitHub user: %w", err)
		}
		// Lost a race on either the username or the GitHub ID.
		if existing, lookupErr := s.users.GetUserByGitHubID(ctx, gh.ID); lookupErr == nil {
			return s.issue(existing, "github")
		}
		user.Username = suffixed(gh.Login)
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("creating GitHub user: %w", err)
		}
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Int64("githubID", gh.ID),
	)
	return s.issue(user, "github")
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens for user %s: %w", user.ID, err)
	}
	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// suffixed appends the tail of a fresh xid, which carries the per-process
// counter and so differs on every call.
func suffixed(login string) string {
	id := xid.New().String()
	return login + "-" + id[len(id)-8:]
}

func usernameTaken() *apperror.AppError {
	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: "a user with that username already exists",
		Field:   "username",
	}
}

func invalidCredentials() *apperror.AppError {
	return apperror.Unauthorized("no active account found with the given credentials")
}
