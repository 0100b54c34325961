package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/xid"
	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

var (
	_ repository.ActivityRepository = (*DB)(nil)
	_ repository.SummaryRepository  = (*DB)(nil)
)

const activityColumns = `id, user_id, date, type, duration, calories_burned, distance, steps,
	heart_rate, notes, source, external_id, raw_data, created_at, updated_at`

const summaryColumns = `id, user_id, date, total_calories, total_active_minutes, total_steps,
	resting_heart_rate, source, raw_data, created_at, updated_at`

// ===== ACTIVITIES =====

func (db *DB) CreateActivity(ctx context.Context, a *model.FitnessActivity) error {
	now := time.Now().UTC()
	a.ID = xid.New().String()
	a.CreatedAt = now
	a.UpdatedAt = now

	hr, err := encodeHeartRate(a.HeartRate)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO fitness_activities (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Date, string(a.Type), a.Duration, a.CaloriesBurned, a.Distance, a.Steps,
		hr, a.Notes, string(a.Source), a.ExternalID, nullJSON(a.RawData), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("activity", a.Date)
		}
		return fmt.Errorf("sqlite: inserting activity for %s: %w", a.Date, err)
	}
	return nil
}

// UpsertExternalActivity writes an imported activity keyed by
// (UserID, Date, ExternalID). Re-importing the same log replaces it.
func (db *DB) UpsertExternalActivity(ctx context.Context, a *model.FitnessActivity) error {
	if a.ExternalID == nil || *a.ExternalID == "" {
		return apperror.ValidationFailed("externalId", "external activities need an external id")
	}

	hr, err := encodeHeartRate(a.HeartRate)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO fitness_activities (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date, external_id) WHERE external_id IS NOT NULL DO UPDATE SET
			type = excluded.type,
			duration = excluded.duration,
			calories_burned = excluded.calories_burned,
			distance = excluded.distance,
			steps = excluded.steps,
			heart_rate = excluded.heart_rate,
			source = excluded.source,
			raw_data = excluded.raw_data,
			updated_at = excluded.updated_at`,
		xid.New().String(), a.UserID, a.Date, string(a.Type), a.Duration, a.CaloriesBurned, a.Distance, a.Steps,
		hr, a.Notes, string(a.Source), *a.ExternalID, nullJSON(a.RawData), now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting activity %s for %s: %w", *a.ExternalID, a.Date, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM fitness_activities WHERE user_id = ? AND date = ? AND external_id = ?`,
		a.UserID, a.Date, *a.ExternalID,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back activity %s: %w", *a.ExternalID, err)
	}
	a.UpdatedAt = now
	return nil
}

func (db *DB) GetActivity(ctx context.Context, userID, id string) (*model.FitnessActivity, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM fitness_activities WHERE id = ? AND user_id = ?`, id, userID,
	)
	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("activity", id)
		}
		return nil, fmt.Errorf("sqlite: getting activity %s: %w", id, err)
	}
	return a, nil
}

// ListActivities returns the user's activities in the range, newest first.
func (db *DB) ListActivities(ctx context.Context, userID string, f repository.ActivityFilter) ([]model.FitnessActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM fitness_activities
		 WHERE user_id = ? AND date >= ? AND date <= ?`
	args := []any{userID, f.Start, f.End}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities: %w", err)
	}
	defer rows.Close()

	activities := []model.FitnessActivity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activities: %w", err)
	}
	return activities, nil
}

func (db *DB) UpdateActivity(ctx context.Context, a *model.FitnessActivity) error {
	a.UpdatedAt = time.Now().UTC()

	hr, err := encodeHeartRate(a.HeartRate)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE fitness_activities SET date = ?, type = ?, duration = ?, calories_burned = ?, distance = ?,
			steps = ?, heart_rate = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		a.Date, string(a.Type), a.Duration, a.CaloriesBurned, a.Distance,
		a.Steps, hr, a.Notes, a.UpdatedAt,
		a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating activity %s: %w", a.ID, err)
	}
	return expectOneRow(res, "activity", a.ID)
}

func (db *DB) DeleteActivity(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM fitness_activities WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting activity %s: %w", id, err)
	}
	return expectOneRow(res, "activity", id)
}

// ===== DAILY SUMMARIES =====

func (db *DB) GetSummary(ctx context.Context, userID, date string) (*model.DailyFitnessSummary, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM daily_fitness_summaries WHERE user_id = ? AND date = ?`, userID, date,
	)
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("daily summary", date)
		}
		return nil, fmt.Errorf("sqlite: getting summary for %s: %w", date, err)
	}
	return s, nil
}

func (db *DB) ListSummaries(ctx context.Context, userID string, r repository.DateRange) ([]model.DailyFitnessSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM daily_fitness_summaries
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC`,
		userID, r.Start, r.End,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing summaries: %w", err)
	}
	defer rows.Close()

	summaries := []model.DailyFitnessSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning summary: %w", err)
		}
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating summaries: %w", err)
	}
	return summaries, nil
}

// UpsertSummary replaces the totals of (UserID, Date) with the provider's.
func (db *DB) UpsertSummary(ctx context.Context, s *model.DailyFitnessSummary) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO daily_fitness_summaries (`+summaryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			total_calories = excluded.total_calories,
			total_active_minutes = excluded.total_active_minutes,
			total_steps = excluded.total_steps,
			resting_heart_rate = excluded.resting_heart_rate,
			source = excluded.source,
			raw_data = excluded.raw_data,
			updated_at = excluded.updated_at`,
		xid.New().String(), s.UserID, s.Date, s.TotalCalories, s.TotalActiveMinutes, s.TotalSteps,
		s.RestingHeartRate, string(s.Source), nullJSON(s.RawData), now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting summary for %s: %w", s.Date, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM daily_fitness_summaries WHERE user_id = ? AND date = ?`, s.UserID, s.Date,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back summary for %s: %w", s.Date, err)
	}
	s.UpdatedAt = now
	return nil
}

// ApplySummaryDelta adds d to the day's totals in one statement, so two
// concurrent writers for the same day cannot lose each other's increment.
// A missing summary is created with manual provenance; an existing one
// keeps its provenance.
func (db *DB) ApplySummaryDelta(ctx context.Context, userID, date string, d model.SummaryDelta) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO daily_fitness_summaries
			(id, user_id, date, total_calories, total_active_minutes, total_steps, source, created_at, updated_at)
		 VALUES (?, ?, ?, max(0, ?), max(0, ?), max(0, ?), ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			total_calories = max(0, total_calories + ?),
			total_active_minutes = max(0, total_active_minutes + ?),
			total_steps = max(0, total_steps + ?),
			updated_at = excluded.updated_at`,
		xid.New().String(), userID, date, d.Calories, d.ActiveMinutes, d.Steps, string(model.SourceManual), now, now,
		d.Calories, d.ActiveMinutes, d.Steps,
	)
	if err != nil {
		return fmt.Errorf("sqlite: applying summary delta for %s: %w", date, err)
	}
	return nil
}

func encodeHeartRate(hr *model.HeartRate) (sql.NullString, error) {
	if hr == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(hr)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: encoding heart rate: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanActivity(s scanner) (*model.FitnessActivity, error) {
	var (
		a                   model.FitnessActivity
		typ, source         string
		heartRate, raw, ext sql.NullString
	)
	err := s.Scan(
		&a.ID, &a.UserID, &a.Date, &typ, &a.Duration, &a.CaloriesBurned, &a.Distance, &a.Steps,
		&heartRate, &a.Notes, &source, &ext, &raw, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = model.ActivityType(typ)
	a.Source = model.Source(source)
	a.RawData = rawJSON(raw)
	if ext.Valid {
		a.ExternalID = &ext.String
	}
	if heartRate.Valid && heartRate.String != "" {
		var hr model.HeartRate
		if err := json.Unmarshal([]byte(heartRate.String), &hr); err != nil {
			return nil, fmt.Errorf("decoding heart rate of activity %s: %w", a.ID, err)
		}
		a.HeartRate = &hr
	}
	return &a, nil
}

func scanSummary(s scanner) (*model.DailyFitnessSummary, error) {
	var (
		sum    model.DailyFitnessSummary
		source string
		raw    sql.NullString
	)
	err := s.Scan(
		&sum.ID, &sum.UserID, &sum.Date, &sum.TotalCalories, &sum.TotalActiveMinutes, &sum.TotalSteps,
		&sum.RestingHeartRate, &source, &raw, &sum.CreatedAt, &sum.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sum.Source = model.Source(source)
	sum.RawData = rawJSON(raw)
	return &sum, nil
}
