package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "  Sleeper@Example.COM ",
		PasswordHash: "hash",
		Name:         "Sleeper",
		Preferences:  model.DefaultPreferences(),
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.Email != "sleeper@example.com" {
		t.Errorf("Email = %q, want lower-cased and trimmed", user.Email)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set CreatedAt")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "DUP@example.com", PasswordHash: "x", Name: "B"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "round@example.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Email != "round@example.com" || found.Name != "Test User" {
		t.Errorf("got %+v", found)
	}
	if found.Preferences != model.DefaultPreferences() {
		t.Errorf("Preferences = %+v, want defaults", found.Preferences)
	}
	if found.Fitbit != nil {
		t.Error("new users must have no fitbit connection")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "case@example.com")

	found, err := db.GetUserByEmail(context.Background(), "CASE@Example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "old@example.com")
	ctx := context.Background()

	if err := db.UpdateProfile(ctx, u.ID, "New Name", "New@Example.com"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	found, _ := db.GetUserByID(ctx, u.ID)
	if found.Name != "New Name" || found.Email != "new@example.com" {
		t.Errorf("got name=%q email=%q", found.Name, found.Email)
	}
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken@example.com")
	u := createTestUser(t, db, "mine@example.com")

	err := db.UpdateProfile(context.Background(), u.ID, "x", "taken@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("UpdateProfile() error = %v, want ErrConflict", err)
	}
}

func TestUpdatePreferences(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "prefs@example.com")
	ctx := context.Background()

	prefs := model.DefaultPreferences()
	prefs.Theme = "dark"
	prefs.Notifications.WeeklyReport = false
	if err := db.UpdatePreferences(ctx, u.ID, prefs); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	found, _ := db.GetUserByID(ctx, u.ID)
	if found.Preferences != prefs {
		t.Errorf("Preferences = %+v, want %+v", found.Preferences, prefs)
	}
}

func TestUpdatePreferences_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdatePreferences(context.Background(), "missing", model.DefaultPreferences())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdatePreferences() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FITBIT CONNECTION TESTS
// =========================================================================

func TestFitbitConnectionLifecycle(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "fit@example.com")
	ctx := context.Background()

	conn, err := db.GetFitbitConnection(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetFitbitConnection() error = %v", err)
	}
	if conn != nil {
		t.Fatal("expected no connection before linking")
	}

	err = db.SaveFitbitConnection(ctx, u.ID, model.FitbitConnection{
		ExternalID: "ABC123", AccessToken: "access-1", RefreshToken: "refresh-1",
	})
	if err != nil {
		t.Fatalf("SaveFitbitConnection() error = %v", err)
	}

	if err := db.UpdateFitbitTokens(ctx, u.ID, "access-2", "refresh-2"); err != nil {
		t.Fatalf("UpdateFitbitTokens() error = %v", err)
	}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	if err := db.TouchFitbitSync(ctx, u.ID, at); err != nil {
		t.Fatalf("TouchFitbitSync() error = %v", err)
	}

	conn, err = db.GetFitbitConnection(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetFitbitConnection() error = %v", err)
	}
	if conn == nil {
		t.Fatal("expected a connection after linking")
	}
	if conn.AccessToken != "access-2" || conn.RefreshToken != "refresh-2" {
		t.Errorf("tokens = %q/%q, want access-2/refresh-2", conn.AccessToken, conn.RefreshToken)
	}
	if conn.LastSync == nil || !conn.LastSync.Equal(at) {
		t.Errorf("LastSync = %v, want %v", conn.LastSync, at)
	}

	byFitbit, err := db.GetUserByFitbitID(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetUserByFitbitID() error = %v", err)
	}
	if byFitbit.ID != u.ID {
		t.Errorf("GetUserByFitbitID() = %q, want %q", byFitbit.ID, u.ID)
	}

	if err := db.ClearFitbitConnection(ctx, u.ID); err != nil {
		t.Fatalf("ClearFitbitConnection() error = %v", err)
	}
	conn, _ = db.GetFitbitConnection(ctx, u.ID)
	if conn != nil {
		t.Errorf("connection still present after clear: %+v", conn)
	}
}

func TestSaveFitbitConnection_AccountLinkedElsewhere(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	ctx := context.Background()

	c := model.FitbitConnection{ExternalID: "SAME", AccessToken: "t", RefreshToken: "r"}
	if err := db.SaveFitbitConnection(ctx, a.ID, c); err != nil {
		t.Fatalf("first link: %v", err)
	}
	err := db.SaveFitbitConnection(ctx, b.ID, c)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second link error = %v, want ErrConflict", err)
	}
}
