package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
)

func TestProfile(t *testing.T) {
	db := newTestStore(t)
	u := newTestUser(t, db, "me@example.com")
	svc := NewUserService(db, quietLogger())

	p, err := svc.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", p.Email)
	assert.False(t, p.FitbitConnected)

	require.NoError(t, db.SaveFitbitConnection(context.Background(), u.ID, model.FitbitConnection{
		ExternalID: "ABC", AccessToken: "a", RefreshToken: "r",
	}))
	p, err = svc.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, p.FitbitConnected)
}

func TestUpdateProfile(t *testing.T) {
	db := newTestStore(t)
	u := newTestUser(t, db, "me@example.com")
	svc := NewUserService(db, quietLogger())

	p, err := svc.UpdateProfile(context.Background(), u.ID, ProfileUpdate{Name: ptr("  New Name ")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", p.Name)
	assert.Equal(t, "me@example.com", p.Email, "email untouched")
}

func TestUpdateProfile_Errors(t *testing.T) {
	db := newTestStore(t)
	u := newTestUser(t, db, "me@example.com")
	newTestUser(t, db, "taken@example.com")
	svc := NewUserService(db, quietLogger())
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: ptr("taken@example.com")})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: ptr("not-an-email")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: ptr("   ")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdatePreferences_MergesPatch(t *testing.T) {
	db := newTestStore(t)
	u := newTestUser(t, db, "me@example.com")
	svc := NewUserService(db, quietLogger())
	ctx := context.Background()

	prefs, err := svc.UpdatePreferences(ctx, u.ID, model.PreferencesPatch{
		Theme:         ptr("dark"),
		Notifications: &model.NotificationsPatch{WeeklyReport: ptr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, "metric", prefs.Units, "untouched field keeps its value")
	assert.False(t, prefs.Notifications.WeeklyReport)
	assert.True(t, prefs.Notifications.SleepReminders)

	stored, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *prefs, stored.Preferences)

	_, err = svc.UpdatePreferences(ctx, u.ID, model.PreferencesPatch{Theme: ptr("neon")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
