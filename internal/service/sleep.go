package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/dates"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
	"github.com/sakif/sleepfit-stats/internal/validation"
)

// defaultStatsDays is the statistics window when no range is given.
const defaultStatsDays = 30

// SleepService owns manual sleep entries and sleep statistics. Every
// operation is scoped to the calling user.
type SleepService struct {
	entries repository.SleepRepository
	now     func() time.Time
	logger  *slog.Logger
}

func NewSleepService(entries repository.SleepRepository, logger *slog.Logger) *SleepService {
	return &SleepService{entries: entries, now: time.Now, logger: logger}
}

// List returns the user's entries in [start, end], newest first.
func (s *SleepService) List(ctx context.Context, userID, start, end string) ([]model.SleepEntry, error) {
	r, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListSleep(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("service/sleep: listing entries: %w", err)
	}
	return entries, nil
}

// Statistics averages the user's entries in [start, end]. Missing bounds
// default to the last 30 days. An empty range yields zeros.
func (s *SleepService) Statistics(ctx context.Context, userID, start, end string) (*model.SleepStats, error) {
	now := s.now()
	if start == "" {
		start = dates.DaysAgo(now, defaultStatsDays)
	}
	if end == "" {
		end = dates.Today(now)
	}

	entries, err := s.List(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &model.SleepStats{StartDate: start, EndDate: end, TotalEntries: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	var duration, quality, deep, rem, light, awake float64
	for _, e := range entries {
		duration += float64(e.Duration)
		quality += float64(e.Quality)
		deep += e.DeepSleepPct
		rem += e.RemSleepPct
		light += e.LightSleepPct
		awake += float64(e.AwakeTime)
	}

	n := float64(len(entries))
	stats.AverageDuration = int(math.Round(duration / n))
	stats.AverageQuality = round1(quality / n)
	stats.AverageDeepSleep = round1(deep / n)
	stats.AverageRemSleep = round1(rem / n)
	stats.AverageLightSleep = round1(light / n)
	stats.AverageAwakeTime = round1(awake / n)
	return stats, nil
}

// Create stores a manual entry. A second entry for the same date is a
// conflict.
func (s *SleepService) Create(ctx context.Context, userID string, in model.NewSleepEntry) (*model.SleepEntry, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkStages(in.DeepSleepPct, in.RemSleepPct, in.LightSleepPct); err != nil {
		return nil, err
	}

	entry := in.Entry(userID)
	if err := s.entries.CreateSleep(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/sleep: creating entry for %s: %w", in.Date, err)
	}

	s.logger.Info("sleep entry created", slog.String("userID", userID), slog.String("date", entry.Date))
	return entry, nil
}

// Update applies patch to a manual entry. Stage percentages are checked
// against the merged entry whenever the patch sets any of them.
func (s *SleepService) Update(ctx context.Context, userID, id string, patch model.SleepPatch) (*model.SleepEntry, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	entry, err := s.manualEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(entry)
	if patch.TouchesStages() {
		if err := checkStages(entry.DeepSleepPct, entry.RemSleepPct, entry.LightSleepPct); err != nil {
			return nil, err
		}
	}

	if err := s.entries.UpdateSleep(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/sleep: updating entry %s: %w", id, err)
	}
	return entry, nil
}

// Delete removes a manual entry.
func (s *SleepService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.manualEntry(ctx, userID, id); err != nil {
		return err
	}
	if err := s.entries.DeleteSleep(ctx, userID, id); err != nil {
		return fmt.Errorf("service/sleep: deleting entry %s: %w", id, err)
	}
	return nil
}

// manualEntry loads the caller's entry and refuses imported ones.
func (s *SleepService) manualEntry(ctx context.Context, userID, id string) (*model.SleepEntry, error) {
	entry, err := s.entries.GetSleep(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/sleep: loading entry %s: %w", id, err)
	}
	if entry.Source.External() {
		return nil, apperror.Forbidden("imported sleep entries cannot be modified")
	}
	return entry, nil
}

func checkStages(deep, rem, light float64) error {
	if math.Abs(deep+rem+light-100) > stageTolerance {
		return apperror.ValidationFailed("sleepStages", "sleep stage percentages must add up to 100%")
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
