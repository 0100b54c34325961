package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/sleepfit-stats/internal/model"
)

// newTestDB returns a migrated in-memory database closed at test end.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	u := &model.User{
		Email:        email,
		PasswordHash: "$2a$04$not-a-real-hash",
		Name:         "Test User",
		Preferences:  model.DefaultPreferences(),
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func TestNew_MigratesSchema(t *testing.T) {
	db := newTestDB(t)

	v, err := db.Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != 3 {
		t.Errorf("schema version = %d, want 3", v)
	}

	for _, table := range []string{"users", "sleep_entries", "fitness_activities", "daily_fitness_summaries"} {
		var n int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(nil); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
