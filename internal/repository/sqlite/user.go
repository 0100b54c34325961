package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/xid"
	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

// compile-time checks that *DB implements the user-facing ports
var (
	_ repository.UserRepository             = (*DB)(nil)
	_ repository.FitbitConnectionRepository = (*DB)(nil)
)

const userColumns = `id, email, password_hash, name, preferences,
	fitbit_id, fitbit_access_token, fitbit_refresh_token, fitbit_last_sync,
	created_at, updated_at`

// CreateUser inserts a new account. Emails are stored lower-cased; a
// duplicate email is reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferences: %w", err)
	}

	var fitbitID, access, refresh sql.NullString
	var lastSync *time.Time
	if c := user.Fitbit; c != nil {
		fitbitID = nullString(c.ExternalID)
		access = nullString(c.AccessToken)
		refresh = nullString(c.RefreshToken)
		lastSync = c.LastSync
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(prefs),
		fitbitID,
		access,
		refresh,
		lastSync,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "email", email)
}

func (db *DB) GetUserByFitbitID(ctx context.Context, fitbitID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE fitbit_id = ?`, fitbitID)
	return scanUser(row, "fitbit id", fitbitID)
}

// UpdateProfile changes name and email. Another account holding the email
// yields apperror.ErrConflict.
func (db *DB) UpdateProfile(ctx context.Context, id, name, email string) error {
	email = normalizeEmail(email)
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, email, time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", email)
		}
		return fmt.Errorf("sqlite: updating profile of user %s: %w", id, err)
	}
	return expectOneRow(res, "user", id)
}

func (db *DB) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error {
	b, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferences: %w", err)
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET preferences = ?, updated_at = ? WHERE id = ?`,
		string(b), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating preferences of user %s: %w", id, err)
	}
	return expectOneRow(res, "user", id)
}

// GetFitbitConnection returns the stored connection, or nil when the user
// has none.
func (db *DB) GetFitbitConnection(ctx context.Context, userID string) (*model.FitbitConnection, error) {
	u, err := db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Fitbit, nil
}

// SaveFitbitConnection links a provider account, replacing any previous
// link. Another user already holding the same provider id is a conflict.
func (db *DB) SaveFitbitConnection(ctx context.Context, userID string, c model.FitbitConnection) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET fitbit_id = ?, fitbit_access_token = ?, fitbit_refresh_token = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(c.ExternalID), nullString(c.AccessToken), nullString(c.RefreshToken), time.Now().UTC(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("fitbit account", c.ExternalID)
		}
		return fmt.Errorf("sqlite: saving fitbit connection of user %s: %w", userID, err)
	}
	return expectOneRow(res, "user", userID)
}

func (db *DB) UpdateFitbitTokens(ctx context.Context, userID, accessToken, refreshToken string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET fitbit_access_token = ?, fitbit_refresh_token = ?, updated_at = ? WHERE id = ?`,
		accessToken, refreshToken, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating fitbit tokens of user %s: %w", userID, err)
	}
	return expectOneRow(res, "user", userID)
}

func (db *DB) TouchFitbitSync(ctx context.Context, userID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET fitbit_last_sync = ? WHERE id = ?`, at.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording sync time of user %s: %w", userID, err)
	}
	return expectOneRow(res, "user", userID)
}

func (db *DB) ClearFitbitConnection(ctx context.Context, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET fitbit_id = NULL, fitbit_access_token = NULL, fitbit_refresh_token = NULL,
		 fitbit_last_sync = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing fitbit connection of user %s: %w", userID, err)
	}
	return expectOneRow(res, "user", userID)
}

func scanUser(row *sql.Row, by, key string) (*model.User, error) {
	var (
		u                         model.User
		prefs                     string
		fitbitID, access, refresh sql.NullString
		lastSync                  *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&prefs,
		&fitbitID,
		&access,
		&refresh,
		&lastSync,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", by, key, err)
	}

	u.Preferences = model.DefaultPreferences()
	if prefs != "" {
		if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
			return nil, fmt.Errorf("sqlite: decoding preferences of user %s: %w", u.ID, err)
		}
	}

	if fitbitID.Valid || access.Valid {
		u.Fitbit = &model.FitbitConnection{
			ExternalID:   fitbitID.String,
			AccessToken:  access.String,
			RefreshToken: refresh.String,
			LastSync:     lastSync,
		}
	}
	return &u, nil
}

func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
