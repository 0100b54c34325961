package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

var _ repository.SleepRepository = (*DB)(nil)

const sleepColumns = `id, user_id, date, start_time, end_time, duration, quality,
	deep_sleep_pct, rem_sleep_pct, light_sleep_pct, awake_time, notes, source, raw_data,
	created_at, updated_at`

// CreateSleep inserts a new entry. An existing entry for the same
// (user, date) is reported as apperror.ErrConflict.
func (db *DB) CreateSleep(ctx context.Context, e *model.SleepEntry) error {
	now := time.Now().UTC()
	e.ID = xid.New().String()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sleep_entries (`+sleepColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Date, e.StartTime.UTC(), e.EndTime.UTC(), e.Duration, e.Quality,
		e.DeepSleepPct, e.RemSleepPct, e.LightSleepPct, e.AwakeTime, e.Notes, string(e.Source), nullJSON(e.RawData),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("sleep entry", e.Date)
		}
		return fmt.Errorf("sqlite: inserting sleep entry for %s: %w", e.Date, err)
	}
	return nil
}

// UpsertSleep writes e keyed by (UserID, Date). An existing row keeps its
// id and created_at; everything else is replaced. e.ID is set to the
// stored id on return.
func (db *DB) UpsertSleep(ctx context.Context, e *model.SleepEntry) error {
	now := time.Now().UTC()
	id := xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sleep_entries (`+sleepColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			quality = excluded.quality,
			deep_sleep_pct = excluded.deep_sleep_pct,
			rem_sleep_pct = excluded.rem_sleep_pct,
			light_sleep_pct = excluded.light_sleep_pct,
			awake_time = excluded.awake_time,
			source = excluded.source,
			raw_data = excluded.raw_data,
			updated_at = excluded.updated_at`,
		id, e.UserID, e.Date, e.StartTime.UTC(), e.EndTime.UTC(), e.Duration, e.Quality,
		e.DeepSleepPct, e.RemSleepPct, e.LightSleepPct, e.AwakeTime, e.Notes, string(e.Source), nullJSON(e.RawData),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting sleep entry for %s: %w", e.Date, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM sleep_entries WHERE user_id = ? AND date = ?`, e.UserID, e.Date,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back sleep entry for %s: %w", e.Date, err)
	}
	e.UpdatedAt = now
	return nil
}

// GetSleep returns the caller's entry. Entries of other users are reported
// as not found.
func (db *DB) GetSleep(ctx context.Context, userID, id string) (*model.SleepEntry, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sleepColumns+` FROM sleep_entries WHERE id = ? AND user_id = ?`, id, userID,
	)
	e, err := scanSleep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("sleep entry", id)
		}
		return nil, fmt.Errorf("sqlite: getting sleep entry %s: %w", id, err)
	}
	return e, nil
}

// ListSleep returns the user's entries in the range, newest first.
func (db *DB) ListSleep(ctx context.Context, userID string, r repository.DateRange) ([]model.SleepEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sleepColumns+` FROM sleep_entries
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC`,
		userID, r.Start, r.End,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sleep entries: %w", err)
	}
	defer rows.Close()

	entries := []model.SleepEntry{}
	for rows.Next() {
		e, err := scanSleep(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning sleep entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sleep entries: %w", err)
	}
	return entries, nil
}

// UpdateSleep overwrites the mutable fields of an existing entry.
func (db *DB) UpdateSleep(ctx context.Context, e *model.SleepEntry) error {
	e.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE sleep_entries SET date = ?, start_time = ?, end_time = ?, duration = ?, quality = ?,
			deep_sleep_pct = ?, rem_sleep_pct = ?, light_sleep_pct = ?, awake_time = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.Date, e.StartTime.UTC(), e.EndTime.UTC(), e.Duration, e.Quality,
		e.DeepSleepPct, e.RemSleepPct, e.LightSleepPct, e.AwakeTime, e.Notes, e.UpdatedAt,
		e.ID, e.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("sleep entry", e.Date)
		}
		return fmt.Errorf("sqlite: updating sleep entry %s: %w", e.ID, err)
	}
	return expectOneRow(res, "sleep entry", e.ID)
}

func (db *DB) DeleteSleep(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM sleep_entries WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting sleep entry %s: %w", id, err)
	}
	return expectOneRow(res, "sleep entry", id)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSleep(s scanner) (*model.SleepEntry, error) {
	var (
		e      model.SleepEntry
		source string
		raw    sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.UserID, &e.Date, &e.StartTime, &e.EndTime, &e.Duration, &e.Quality,
		&e.DeepSleepPct, &e.RemSleepPct, &e.LightSleepPct, &e.AwakeTime, &e.Notes, &source, &raw,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Source = model.Source(source)
	e.RawData = rawJSON(raw)
	return &e, nil
}
