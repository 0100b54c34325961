// Package repository declares the storage ports the services depend on.
package repository

import (
	"context"
	"time"

	"github.com/sakif/sleepfit-stats/internal/model"
)

// DateRange selects records whose date lies in [Start, End]. Dates are
// YYYY-MM-DD strings, so lexical and chronological order agree.
type DateRange struct {
	Start string
	End   string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByFitbitID(ctx context.Context, fitbitID string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) error
	UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error
}

// FitbitConnectionRepository stores the per-user OAuth token pair.
type FitbitConnectionRepository interface {
	GetFitbitConnection(ctx context.Context, userID string) (*model.FitbitConnection, error)
	SaveFitbitConnection(ctx context.Context, userID string, conn model.FitbitConnection) error
	UpdateFitbitTokens(ctx context.Context, userID, accessToken, refreshToken string) error
	TouchFitbitSync(ctx context.Context, userID string, at time.Time) error
	ClearFitbitConnection(ctx context.Context, userID string) error
}

type SleepRepository interface {
	CreateSleep(ctx context.Context, entry *model.SleepEntry) error
	// UpsertSleep inserts or replaces the entry for (UserID, Date).
	UpsertSleep(ctx context.Context, entry *model.SleepEntry) error
	GetSleep(ctx context.Context, userID, id string) (*model.SleepEntry, error)
	ListSleep(ctx context.Context, userID string, r DateRange) ([]model.SleepEntry, error)
	UpdateSleep(ctx context.Context, entry *model.SleepEntry) error
	DeleteSleep(ctx context.Context, userID, id string) error
}

// ActivityFilter narrows ListActivities. An empty Type matches all.
type ActivityFilter struct {
	DateRange
	Type model.ActivityType
}

type ActivityRepository interface {
	CreateActivity(ctx context.Context, a *model.FitnessActivity) error
	// UpsertExternalActivity inserts or replaces by (UserID, Date, ExternalID).
	UpsertExternalActivity(ctx context.Context, a *model.FitnessActivity) error
	GetActivity(ctx context.Context, userID, id string) (*model.FitnessActivity, error)
	ListActivities(ctx context.Context, userID string, f ActivityFilter) ([]model.FitnessActivity, error)
	UpdateActivity(ctx context.Context, a *model.FitnessActivity) error
	DeleteActivity(ctx context.Context, userID, id string) error
}

type SummaryRepository interface {
	GetSummary(ctx context.Context, userID, date string) (*model.DailyFitnessSummary, error)
	ListSummaries(ctx context.Context, userID string, r DateRange) ([]model.DailyFitnessSummary, error)
	// UpsertSummary replaces the totals for (UserID, Date) with s's values.
	UpsertSummary(ctx context.Context, s *model.DailyFitnessSummary) error
	// ApplySummaryDelta adds d to the totals for (userID, date), creating a
	// manual summary if none exists. Totals never drop below zero.
	ApplySummaryDelta(ctx context.Context, userID, date string, d model.SummaryDelta) error
}
