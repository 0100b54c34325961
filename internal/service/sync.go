package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/dates"
	"github.com/sakif/sleepfit-stats/internal/fitbit"
	"github.com/sakif/sleepfit-stats/internal/metrics"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

// MaxSyncDays is the longest range Fitbit serves in one sleep request.
const MaxSyncDays = 100

// defaultSyncAllDays is how far back sync-all reaches without a start date.
const defaultSyncAllDays = 30

// FitbitAPI is the part of *fitbit.Client used by sync.
type FitbitAPI interface {
	SleepByDateRange(ctx context.Context, userID, start, end string) ([]fitbit.SleepLog, error)
	ActivitiesByDate(ctx context.Context, userID, date string) (*fitbit.DailyActivity, error)
	HeartRateByDate(ctx context.Context, userID, date string) (*fitbit.HeartRateDay, error)
}

// SyncStore is every repository sync writes to. *sqlite.DB satisfies it.
type SyncStore interface {
	repository.FitbitConnectionRepository
	repository.SleepRepository
	repository.ActivityRepository
	repository.SummaryRepository
}

// SyncService imports Fitbit data into the local store.
//
// Imported records carry fitbit provenance and are written with upserts
// keyed on (user, date) or (user, date, log id), so re-running a sync is
// idempotent. A failure aborts the rest of the call; records already
// written stay written.
type SyncService struct {
	api    FitbitAPI
	store  SyncStore
	now    func() time.Time
	logger *slog.Logger
}

func NewSyncService(api FitbitAPI, store SyncStore, logger *slog.Logger) *SyncService {
	return &SyncService{api: api, store: store, now: time.Now, logger: logger}
}

// ConnectionStatus is the body of GET /api/fitbit/status.
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	LastSync  *time.Time `json:"lastSync"`
}

// SyncAllResult reports what SyncAll covered.
type SyncAllResult struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Sleep      int    `json:"sleepEntries"`
	Activities int    `json:"activities"`
}

// SyncSleep imports main-sleep records dated within [start, end]. An empty
// end means today. It returns the number of entries written.
func (s *SyncService) SyncSleep(ctx context.Context, userID, start, end string) (n int, err error) {
	defer func() { metrics.SyncRuns.WithLabelValues("sleep", metrics.Outcome(err)).Inc() }()

	if start == "" {
		return 0, apperror.ValidationFailed("startDate", "startDate is required")
	}
	if end == "" {
		end = dates.Today(s.now())
	}
	if err := checkSyncRange(start, end); err != nil {
		return 0, err
	}

	n, err = s.syncSleep(ctx, userID, start, end)
	if err != nil {
		return n, err
	}
	if err := s.touch(ctx, userID); err != nil {
		return n, err
	}

	s.logger.Info("fitbit sleep synced",
		slog.String("userID", userID),
		slog.String("start", start),
		slog.String("end", end),
		slog.Int("entries", n),
	)
	return n, nil
}

// SyncActivity imports the daily summary and logged activities for date.
// An empty date means today. It returns the number of activities written.
func (s *SyncService) SyncActivity(ctx context.Context, userID, date string) (day string, n int, err error) {
	defer func() { metrics.SyncRuns.WithLabelValues("activity", metrics.Outcome(err)).Inc() }()

	if date == "" {
		date = dates.Today(s.now())
	}
	if !dates.Valid(date) {
		return date, 0, apperror.ValidationFailed("date", "date must be a date in YYYY-MM-DD format")
	}

	n, err = s.syncActivity(ctx, userID, date)
	if err != nil {
		return date, n, err
	}
	if err := s.touch(ctx, userID); err != nil {
		return date, n, err
	}

	s.logger.Info("fitbit activity synced",
		slog.String("userID", userID),
		slog.String("date", date),
		slog.Int("activities", n),
	)
	return date, n, nil
}

// SyncAll imports sleep over [start, today] and then activity for each day
// of that range. An empty start means 30 days ago.
func (s *SyncService) SyncAll(ctx context.Context, userID, start string) (res SyncAllResult, err error) {
	defer func() { metrics.SyncRuns.WithLabelValues("all", metrics.Outcome(err)).Inc() }()

	now := s.now()
	if start == "" {
		start = dates.DaysAgo(now, defaultSyncAllDays)
	}
	end := dates.Today(now)
	res = SyncAllResult{StartDate: start, EndDate: end}

	if err := checkSyncRange(start, end); err != nil {
		return res, err
	}

	res.Sleep, err = s.syncSleep(ctx, userID, start, end)
	if err != nil {
		return res, err
	}

	days, err := dates.Range(start, end)
	if err != nil {
		return res, apperror.ValidationFailed("startDate", err.Error())
	}
	for _, d := range days {
		n, err := s.syncActivity(ctx, userID, d)
		res.Activities += n
		if err != nil {
			return res, err
		}
	}

	if err := s.touch(ctx, userID); err != nil {
		return res, err
	}

	s.logger.Info("fitbit full sync completed",
		slog.String("userID", userID),
		slog.String("start", start),
		slog.String("end", end),
		slog.Int("sleep_entries", res.Sleep),
		slog.Int("activities", res.Activities),
	)
	return res, nil
}

func (s *SyncService) Status(ctx context.Context, userID string) (ConnectionStatus, error) {
	conn, err := s.store.GetFitbitConnection(ctx, userID)
	if err != nil {
		return ConnectionStatus{}, fmt.Errorf("service/sync: reading connection of user %s: %w", userID, err)
	}
	if conn == nil || conn.AccessToken == "" {
		return ConnectionStatus{}, nil
	}
	return ConnectionStatus{Connected: true, LastSync: conn.LastSync}, nil
}

// Disconnect removes the stored token pair. Imported records are kept.
func (s *SyncService) Disconnect(ctx context.Context, userID string) error {
	if err := s.store.ClearFitbitConnection(ctx, userID); err != nil {
		return fmt.Errorf("service/sync: disconnecting user %s: %w", userID, err)
	}
	s.logger.Info("fitbit disconnected", slog.String("userID", userID))
	return nil
}

func (s *SyncService) syncSleep(ctx context.Context, userID, start, end string) (int, error) {
	logs, err := s.api.SleepByDateRange(ctx, userID, start, end)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, l := range logs {
		if !l.IsMainSleep {
			continue
		}
		entry, err := sleepEntryFromLog(userID, l)
		if err != nil {
			return n, apperror.SyncFailed(fitbit.EndpointSleep, 0, err)
		}
		if err := s.store.UpsertSleep(ctx, entry); err != nil {
			return n, fmt.Errorf("service/sync: saving sleep for %s: %w", entry.Date, err)
		}
		n++
	}
	return n, nil
}

func (s *SyncService) syncActivity(ctx context.Context, userID, date string) (int, error) {
	var (
		day   *fitbit.DailyActivity
		heart *fitbit.HeartRateDay
	)

	// The two calls are independent.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		day, err = s.api.ActivitiesByDate(gctx, userID, date)
		return err
	})
	g.Go(func() error {
		var err error
		heart, err = s.api.HeartRateByDate(gctx, userID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	summary, err := summaryFromFitbit(userID, date, day, heart)
	if err != nil {
		return 0, apperror.SyncFailed(fitbit.EndpointActivities, 0, err)
	}
	if err := s.store.UpsertSummary(ctx, summary); err != nil {
		return 0, fmt.Errorf("service/sync: saving summary for %s: %w", date, err)
	}

	n := 0
	for _, a := range day.Activities {
		activity := activityFromFitbit(userID, date, a)
		if err := s.store.UpsertExternalActivity(ctx, activity); err != nil {
			return n, fmt.Errorf("service/sync: saving activity %d for %s: %w", a.LogID, date, err)
		}
		n++
	}
	return n, nil
}

func (s *SyncService) touch(ctx context.Context, userID string) error {
	if err := s.store.TouchFitbitSync(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("service/sync: recording sync time: %w", err)
	}
	return nil
}

func checkSyncRange(start, end string) error {
	days, err := checkRange(start, end)
	if err != nil {
		return err
	}
	if days > MaxSyncDays {
		return apperror.ValidationFailed("startDate",
			fmt.Sprintf("sync range is limited to %d days", MaxSyncDays))
	}
	return nil
}

func sleepEntryFromLog(userID string, l fitbit.SleepLog) (*model.SleepEntry, error) {
	if !dates.Valid(l.DateOfSleep) {
		return nil, fmt.Errorf("sleep log %d has invalid date %q", l.LogID, l.DateOfSleep)
	}
	start, err := parseProviderTime(l.StartTime)
	if err != nil {
		return nil, fmt.Errorf("sleep log %d start: %w", l.LogID, err)
	}
	end, err := parseProviderTime(l.EndTime)
	if err != nil {
		return nil, fmt.Errorf("sleep log %d end: %w", l.LogID, err)
	}

	var stages StagePercentages
	if l.Levels != nil {
		sum := l.Levels.Summary
		stages = NormalizeStages(l.MinutesAsleep, sum.Deep.Value(), sum.Rem.Value(), sum.Light.Value())
	}

	return &model.SleepEntry{
		UserID:        userID,
		Date:          l.DateOfSleep,
		StartTime:     start,
		EndTime:       end,
		Duration:      l.MinutesAsleep,
		Quality:       QualityScore(stages.Deep, stages.Rem),
		DeepSleepPct:  stages.Deep,
		RemSleepPct:   stages.Rem,
		LightSleepPct: stages.Light,
		AwakeTime:     l.MinutesAwake,
		Source:        model.SourceFitbit,
		RawData:       l.Raw,
	}, nil
}

func summaryFromFitbit(userID, date string, day *fitbit.DailyActivity, heart *fitbit.HeartRateDay) (*model.DailyFitnessSummary, error) {
	resting := day.Summary.RestingHeartRate
	raw := map[string]json.RawMessage{}
	if len(day.Raw) > 0 {
		raw["summary"] = day.Raw
	}
	if heart != nil {
		if heart.Value.RestingHeartRate != nil {
			resting = heart.Value.RestingHeartRate
		}
		raw["heartrate"] = heart.Raw
	}

	rawData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding raw summary: %w", err)
	}

	return &model.DailyFitnessSummary{
		UserID:             userID,
		Date:               date,
		TotalCalories:      day.Summary.CaloriesOut,
		TotalActiveMinutes: day.Summary.FairlyActiveMinutes + day.Summary.VeryActiveMinutes,
		TotalSteps:         day.Summary.Steps,
		RestingHeartRate:   resting,
		Source:             model.SourceFitbit,
		RawData:            rawData,
	}, nil
}

func activityFromFitbit(userID, date string, a fitbit.Activity) *model.FitnessActivity {
	externalID := strconv.FormatInt(a.LogID, 10)

	var hr *model.HeartRate
	if len(a.HeartRateZones) > 0 || a.AverageHeartRate != nil {
		zones := MapHeartRateZones(a.HeartRateZones)
		hr = &model.HeartRate{Average: a.AverageHeartRate, Max: a.MaxHeartRate, Zones: &zones}
	}

	return &model.FitnessActivity{
		UserID:         userID,
		Date:           date,
		Type:           MapActivityType(a.ActivityName),
		Duration:       float64(a.Duration) / 60000,
		CaloriesBurned: a.Calories,
		Distance:       a.Distance,
		Steps:          a.Steps,
		HeartRate:      hr,
		Source:         model.SourceFitbit,
		ExternalID:     &externalID,
		RawData:        a.Raw,
	}
}
