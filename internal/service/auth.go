package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/validation"
)

// AuthService registers users and signs them in, either with email and
// password or through GitHub.
//
//	UserHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
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

// AuthResult bundles the user with the token issued for them, so the
// handler can respond and set the cookie in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

// errBadCredentials is returned for an unknown email and a wrong password
// alike.
var errBadCredentials = apperror.ValidationFailed("", "unable to log in with the provided credentials")

// Register creates a password account. A taken email or username is an
// apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, errBadCredentials
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	// GitHub-only accounts have no password.
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback. An account
// already linked to the GitHub id is signed in; otherwise an account with
// the same email is linked, and failing that a new account is created
// from the GitHub profile.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if gh.Email != "" {
		user, err = s.users.GetUserByEmail(ctx, gh.Email)
		switch {
		case err == nil:
			if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
				return nil, err
			}
			s.logger.Info("GitHub account linked",
				slog.String("userID", user.ID),
				slog.Int64("githubID", gh.ID),
			)
			return s.issue(user)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, err
		}
	}

	user, err = s.createGitHubUser(ctx, gh)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

var usernameUnsafe = regexp.MustCompile(`[^\p{L}\p{N}_.@+-]`)

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	id := gh.ID
	username := usernameUnsafe.ReplaceAllString(gh.Login, "")
	if username == "" {
		username = "github"
	}
	email := gh.Email
	if email == "" {
		email = strconv.FormatInt(id, 10) + "+" + username + "@users.noreply.github.com"
	}

	user := &model.User{
		Email:     email,
		Username:  username,
		FirstName: gh.Name,
		GitHubID:  &id,
	}
	err := s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// Username taken by a local account; the GitHub id disambiguates.
		user.Username = username + "-" + strconv.FormatInt(id, 10)
		err = s.users.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, err
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

// SetPassword replaces the user's password after checking the current one.
func (s *AuthService) SetPassword(ctx context.Context, userID, current, next string) error {
	in := struct {
		Current string `json:"current_password" validate:"required"`
		New     string `json:"new_password" validate:"required,min=6,max=72"`
	}{current, next}
	if err := validation.Struct(&in); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" {
		return apperror.ValidationFailed("current_password", "account has no password set")
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.ValidationFailed("current_password", "current password is incorrect")
		}
		return fmt.Errorf("service/auth: %w", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// ValidateToken returns the user id a token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
