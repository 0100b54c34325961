package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/repository"
)

func testSleepEntry(userID, date string) *model.SleepEntry {
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	return &model.SleepEntry{
		UserID:        userID,
		Date:          date,
		StartTime:     start,
		EndTime:       start.Add(7 * time.Hour),
		Duration:      400,
		Quality:       7,
		DeepSleepPct:  25,
		RemSleepPct:   20,
		LightSleepPct: 55,
		AwakeTime:     20,
		Source:        model.SourceManual,
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateSleep(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "s@example.com")
	ctx := context.Background()

	e := testSleepEntry(u.ID, "2024-01-02")
	if err := db.CreateSleep(ctx, e); err != nil {
		t.Fatalf("CreateSleep() error = %v", err)
	}
	if e.ID == "" {
		t.Fatal("CreateSleep() did not set ID")
	}

	found, err := db.GetSleep(ctx, u.ID, e.ID)
	if err != nil {
		t.Fatalf("GetSleep() error = %v", err)
	}
	if found.Duration != 400 || found.DeepSleepPct != 25 || found.Source != model.SourceManual {
		t.Errorf("got %+v", found)
	}
	if !found.StartTime.Equal(e.StartTime) {
		t.Errorf("StartTime = %v, want %v", found.StartTime, e.StartTime)
	}
}

func TestCreateSleep_DuplicateDate(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "s@example.com")
	ctx := context.Background()

	if err := db.CreateSleep(ctx, testSleepEntry(u.ID, "2024-01-02")); err != nil {
		t.Fatalf("first CreateSleep() error = %v", err)
	}
	err := db.CreateSleep(ctx, testSleepEntry(u.ID, "2024-01-02"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second CreateSleep() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUpsertSleep_InsertThenReplace(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "s@example.com")
	ctx := context.Background()

	first := testSleepEntry(u.ID, "2024-01-03")
	first.Source = model.SourceFitbit
	first.RawData = json.RawMessage(`{"logId":1}`)
	if err := db.UpsertSleep(ctx, first); err != nil {
		t.Fatalf("UpsertSleep() insert error = %v", err)
	}

	second := testSleepEntry(u.ID, "2024-01-03")
	second.Source = model.SourceFitbit
	second.Duration = 420
	second.Quality = 3
	if err := db.UpsertSleep(ctx, second); err != nil {
		t.Fatalf("UpsertSleep() replace error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert changed the id: %q -> %q", first.ID, second.ID)
	}

	all, err := db.ListSleep(ctx, u.ID, repository.DateRange{Start: "2024-01-01", End: "2024-01-31"})
	if err != nil {
		t.Fatalf("ListSleep() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListSleep() returned %d entries, want 1", len(all))
	}
	if all[0].Duration != 420 || all[0].Quality != 3 {
		t.Errorf("entry not replaced: %+v", all[0])
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListSleep_RangeAndOwner(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "me@example.com")
	other := createTestUser(t, db, "other@example.com")
	ctx := context.Background()

	for _, d := range []string{"2024-01-01", "2024-01-05", "2024-01-10", "2024-02-01"} {
		if err := db.CreateSleep(ctx, testSleepEntry(u.ID, d)); err != nil {
			t.Fatalf("CreateSleep(%s) error = %v", d, err)
		}
	}
	if err := db.CreateSleep(ctx, testSleepEntry(other.ID, "2024-01-05")); err != nil {
		t.Fatalf("CreateSleep(other) error = %v", err)
	}

	got, err := db.ListSleep(ctx, u.ID, repository.DateRange{Start: "2024-01-05", End: "2024-01-31"})
	if err != nil {
		t.Fatalf("ListSleep() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListSleep() returned %d entries, want 2", len(got))
	}
	if got[0].Date != "2024-01-10" || got[1].Date != "2024-01-05" {
		t.Errorf("order = %s,%s, want newest first", got[0].Date, got[1].Date)
	}
}

func TestListSleep_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "me@example.com")

	got, err := db.ListSleep(context.Background(), u.ID, repository.DateRange{Start: "2024-01-01", End: "2024-01-31"})
	if err != nil {
		t.Fatalf("ListSleep() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListSleep() = %v, want empty slice", got)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUpdateSleep(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "s@example.com")
	ctx := context.Background()

	e := testSleepEntry(u.ID, "2024-01-02")
	if err := db.CreateSleep(ctx, e); err != nil {
		t.Fatalf("CreateSleep() error = %v", err)
	}

	e.Quality = 9
	e.Notes = "slept great"
	if err := db.UpdateSleep(ctx, e); err != nil {
		t.Fatalf("UpdateSleep() error = %v", err)
	}

	found, _ := db.GetSleep(ctx, u.ID, e.ID)
	if found.Quality != 9 || found.Notes != "slept great" {
		t.Errorf("got %+v", found)
	}
}

func TestUpdateSleep_OtherUsersEntry(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	intruder := createTestUser(t, db, "intruder@example.com")
	ctx := context.Background()

	e := testSleepEntry(owner.ID, "2024-01-02")
	if err := db.CreateSleep(ctx, e); err != nil {
		t.Fatalf("CreateSleep() error = %v", err)
	}

	e.UserID = intruder.ID
	if err := db.UpdateSleep(ctx, e); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateSleep() by non-owner error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetSleep(ctx, intruder.ID, e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSleep() by non-owner error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSleep(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "s@example.com")
	ctx := context.Background()

	e := testSleepEntry(u.ID, "2024-01-02")
	if err := db.CreateSleep(ctx, e); err != nil {
		t.Fatalf("CreateSleep() error = %v", err)
	}
	if err := db.DeleteSleep(ctx, u.ID, e.ID); err != nil {
		t.Fatalf("DeleteSleep() error = %v", err)
	}
	if _, err := db.GetSleep(ctx, u.ID, e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetSleep() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteSleep(ctx, u.ID, e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteSleep() error = %v, want ErrNotFound", err)
	}
}
