package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
	"github.com/sakif/sleepfit-stats/internal/validation"
)

// UserService manages the caller's own profile and preferences.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// ProfileUpdate changes name and/or email. Nil fields are left alone.
type ProfileUpdate struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// Profile is the user plus whether Fitbit is linked.
type Profile struct {
	*model.User
	FitbitConnected bool `json:"fitbitConnected"`
}

func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading user %s: %w", userID, err)
	}
	return &Profile{User: u, FitbitConnected: u.FitbitConnected()}, nil
}

// UpdateProfile applies upd. An email held by another account is a
// conflict.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*Profile, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading user %s: %w", userID, err)
	}

	name, email := u.Name, u.Email
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be blank")
		}
	}
	if upd.Email != nil {
		email = *upd.Email
	}

	if err := s.users.UpdateProfile(ctx, userID, name, email); err != nil {
		return nil, fmt.Errorf("service/user: updating profile of %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return s.Profile(ctx, userID)
}

// UpdatePreferences merges patch into the stored preferences.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.Preferences, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading user %s: %w", userID, err)
	}

	prefs := u.Preferences
	patch.Apply(&prefs)
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, fmt.Errorf("service/user: updating preferences of %s: %w", userID, err)
	}
	return &prefs, nil
}
