package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
	"github.com/sakif/sleepfit-stats/internal/validation"
)

// FitnessStore is what FitnessService needs. *sqlite.DB satisfies it.
type FitnessStore interface {
	repository.ActivityRepository
	repository.SummaryRepository
}

// FitnessService owns manual activities and keeps each day's summary in
// step with them.
//
// Summary maintenance goes through ApplySummaryDelta, which adds in a single
// statement, so concurrent writes for the same day do not lose updates. The
// activity write and the summary write are still separate statements.
type FitnessService struct {
	store  FitnessStore
	logger *slog.Logger
}

func NewFitnessService(store FitnessStore, logger *slog.Logger) *FitnessService {
	return &FitnessService{store: store, logger: logger}
}

// ListActivities returns the user's activities in [start, end], optionally
// of a single type.
func (s *FitnessService) ListActivities(ctx context.Context, userID, start, end, typ string) ([]model.FitnessActivity, error) {
	r, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}

	f := repository.ActivityFilter{DateRange: r}
	if typ != "" {
		f.Type = model.ActivityType(typ)
		if !f.Type.Valid() {
			return nil, apperror.ValidationFailed("type", "type must be one of: running, walking, cycling, swimming, weightlifting, yoga, other")
		}
	}

	activities, err := s.store.ListActivities(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("service/fitness: listing activities: %w", err)
	}
	return activities, nil
}

func (s *FitnessService) ListSummaries(ctx context.Context, userID, start, end string) ([]model.DailyFitnessSummary, error) {
	r, err := dateRange(start, end)
	if err != nil {
		return nil, err
	}

	summaries, err := s.store.ListSummaries(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("service/fitness: listing summaries: %w", err)
	}
	return summaries, nil
}

// CreateActivity stores a manual activity and adds it to its day's summary.
func (s *FitnessService) CreateActivity(ctx context.Context, userID string, in model.NewActivity) (*model.FitnessActivity, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	a := in.Activity(userID)
	if err := s.store.CreateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("service/fitness: creating activity: %w", err)
	}
	if err := s.applyDelta(ctx, userID, a.Date, a.SummaryDelta()); err != nil {
		return nil, err
	}

	s.logger.Info("activity created",
		slog.String("userID", userID),
		slog.String("date", a.Date),
		slog.String("type", string(a.Type)),
	)
	return a, nil
}

// UpdateActivity applies patch to a manual activity. The old values leave
// the old date's summary and the new values join the new date's.
func (s *FitnessService) UpdateActivity(ctx context.Context, userID, id string, patch model.ActivityPatch) (*model.FitnessActivity, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	a, err := s.manualActivity(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	oldDate, oldDelta := a.Date, a.SummaryDelta()

	patch.Apply(a)
	if err := s.store.UpdateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("service/fitness: updating activity %s: %w", id, err)
	}

	newDelta := a.SummaryDelta()
	if oldDate == a.Date {
		err = s.applyDelta(ctx, userID, a.Date, newDelta.Sub(oldDelta))
	} else {
		if err = s.applyDelta(ctx, userID, oldDate, oldDelta.Neg()); err == nil {
			err = s.applyDelta(ctx, userID, a.Date, newDelta)
		}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteActivity removes a manual activity and takes it out of its day's
// summary.
func (s *FitnessService) DeleteActivity(ctx context.Context, userID, id string) error {
	a, err := s.manualActivity(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteActivity(ctx, userID, id); err != nil {
		return fmt.Errorf("service/fitness: deleting activity %s: %w", id, err)
	}
	return s.applyDelta(ctx, userID, a.Date, a.SummaryDelta().Neg())
}

func (s *FitnessService) manualActivity(ctx context.Context, userID, id string) (*model.FitnessActivity, error) {
	a, err := s.store.GetActivity(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/fitness: loading activity %s: %w", id, err)
	}
	if a.Source.External() {
		return nil, apperror.Forbidden("imported activities cannot be modified")
	}
	return a, nil
}

func (s *FitnessService) applyDelta(ctx context.Context, userID, date string, d model.SummaryDelta) error {
	if d.IsZero() {
		return nil
	}
	if err := s.store.ApplySummaryDelta(ctx, userID, date, d); err != nil {
		return fmt.Errorf("service/fitness: updating summary for %s: %w", date, err)
	}
	return nil
}
