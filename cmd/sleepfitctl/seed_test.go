package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sleepfit-stats/internal/logger"
	"github.com/sakif/sleepfit-stats/internal/repository"
	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedCreatesAccountAndData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	opts := seedOptions{
		Email:    "demo@example.com",
		Password: "password123",
		Name:     "Demo",
		Days:     30,
		Today:    time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
	}

	res, err := seed(ctx, db, opts, logger.Discard())
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.Equal(t, 30, res.Sleep)
	assert.Equal(t, 20, res.Activities)

	entries, err := db.ListSleep(ctx, res.UserID, repository.DateRange{Start: "2024-03-02", End: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, entries, 30)

	summaries, err := db.ListSummaries(ctx, res.UserID, repository.DateRange{Start: "2024-03-02", End: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, summaries, 20)
}

func TestSeedLeavesExistingAccountAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	opts := seedOptions{Email: "demo@example.com", Password: "password123", Name: "Demo", Days: 3}

	first, err := seed(ctx, db, opts, logger.Discard())
	require.NoError(t, err)

	second, err := seed(ctx, db, opts, logger.Discard())
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Zero(t, second.Sleep)

	opts.Password = "wrong-password"
	_, err = seed(ctx, db, opts, logger.Discard())
	assert.Error(t, err)
}

func TestSeedRejectsNonPositiveDays(t *testing.T) {
	_, err := seed(context.Background(), newTestDB(t), seedOptions{Email: "a@example.com", Password: "password123", Name: "A"}, logger.Discard())
	assert.ErrorContains(t, err, "--days")
}

func TestMigrateAndVersionCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sleepfit.db")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--db", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "schema version 3")

	out.Reset()
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "sleepfitctl dev\n", out.String())
}
