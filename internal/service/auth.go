// Package service holds the business rules. Handlers call services;
// services call repositories and the auth and fitbit packages:
//
//	Handler (HTTP) → Service (rules) → Repository (DB)
//	                        ↘ TokenService (JWT), fitbit.Client (provider API)
//
// Services never see HTTP types. They return apperror values, which the
// handler layer maps to status codes.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/auth"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
	"github.com/sakif/sleepfit-stats/internal/validation"
)

// fitbitEmailDomain builds placeholder emails for accounts created through
// the Fitbit login, which does not share the user's email.
const fitbitEmailDomain = "@fitbit.user"

// AuthStore is what AuthService needs. *sqlite.DB satisfies it.
type AuthStore interface {
	repository.UserRepository
	repository.FitbitConnectionRepository
}

// AuthService handles registration, login and the Fitbit account link.
//
// DEPENDENCIES (injected via NewAuthService):
//   - store      AuthStore               → users and their Fitbit tokens
//   - tokens     *auth.TokenService      → issue/validate JWTs
//   - passwords  *auth.PasswordService   → bcrypt hashing
//   - logger     *slog.Logger            → structured logging
type AuthService struct {
	store     AuthStore
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	store AuthStore,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the user with a freshly issued bearer token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account with default preferences. A taken email is
// a conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Preferences:  model.DefaultPreferences(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks the credentials. Unknown emails and wrong passwords give the
// same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("missing user id")
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// FitbitLogin finishes the Fitbit OAuth callback.
//
// With a currentUserID the Fitbit account is linked to that user. Otherwise
// the user already linked to the Fitbit account is logged in, or a new
// account is created for it. The stored token pair is replaced either way.
func (s *AuthService) FitbitLogin(ctx context.Context, currentUserID string, token *oauth2.Token, profile *auth.FitbitProfile) (*AuthResult, error) {
	if token == nil || profile == nil || profile.ID == "" {
		return nil, errors.New("service/auth: Fitbit token and profile are required")
	}

	conn := model.FitbitConnection{
		ExternalID:   profile.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}

	userID := currentUserID
	if userID == "" {
		existing, err := s.findFitbitUser(ctx, profile)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			user, err := s.createFitbitUser(ctx, profile, conn)
			if err != nil {
				return nil, err
			}
			return s.issue(user)
		}
		userID = existing.ID
	}

	if err := s.store.SaveFitbitConnection(ctx, userID, conn); err != nil {
		return nil, fmt.Errorf("service/auth: linking fitbit account: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: reloading user %s: %w", userID, err)
	}

	s.logger.Info("fitbit account linked",
		slog.String("userID", user.ID),
		slog.String("fitbitID", profile.ID),
	)
	return s.issue(user)
}

// findFitbitUser returns the user known by the Fitbit id, falling back to
// the placeholder email of an account that was disconnected earlier. It
// returns nil when neither exists.
func (s *AuthService) findFitbitUser(ctx context.Context, profile *auth.FitbitProfile) (*model.User, error) {
	user, err := s.store.GetUserByFitbitID(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up fitbit user: %w", err)
	}

	user, err = s.store.GetUserByEmail(ctx, profile.ID+fitbitEmailDomain)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up fitbit user: %w", err)
	}
	return nil, nil
}

func (s *AuthService) createFitbitUser(ctx context.Context, profile *auth.FitbitProfile, conn model.FitbitConnection) (*model.User, error) {
	// The account can only be reached through Fitbit, so the password is
	// random and never shown.
	hash, err := s.passwords.Hash(rand.Text())
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        profile.ID + fitbitEmailDomain,
		PasswordHash: hash,
		Name:         profile.Name(),
		Preferences:  model.DefaultPreferences(),
		Fitbit:       &conn,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating fitbit user: %w", err)
	}

	s.logger.Info("user registered via fitbit",
		slog.String("userID", user.ID),
		slog.String("fitbitID", profile.ID),
	)
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
