package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/auth"
	"github.com/sakif/sleepfit-stats/internal/dates"
	"github.com/sakif/sleepfit-stats/internal/logger"
	"github.com/sakif/sleepfit-stats/internal/model"
	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
	"github.com/sakif/sleepfit-stats/internal/service"
)

type seedOptions struct {
	Email    string
	Password string
	Name     string
	Days     int
	// Today is the last seeded day. Zero means now.
	Today time.Time
}

type seedResult struct {
	UserID     string
	Existing   bool
	Sleep      int
	Activities int
}

var seedOpts = seedOptions{}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo account with sample sleep and fitness data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := seed(cmd.Context(), db, seedOpts, logger.Discard())
		if err != nil {
			return err
		}
		printSeedResult(cmd.OutOrStdout(), seedOpts, res)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.Email, "email", "test@example.com", "account email")
	seedCmd.Flags().StringVar(&seedOpts.Password, "password", "password123", "account password")
	seedCmd.Flags().StringVar(&seedOpts.Name, "name", "Test User", "display name")
	seedCmd.Flags().IntVar(&seedOpts.Days, "days", 30, "number of days of data ending today")
	rootCmd.AddCommand(seedCmd)
}

// seed registers the demo account and fills it through the services, so
// daily summaries are maintained the same way the API maintains them. An
// account that already exists is left untouched.
func seed(ctx context.Context, db *sqliteRepo.DB, opts seedOptions, log *slog.Logger) (seedResult, error) {
	if opts.Days <= 0 {
		return seedResult{}, fmt.Errorf("--days must be positive, got %d", opts.Days)
	}
	today := opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}

	// The token is discarded; any valid secret will do.
	tokens, err := auth.NewTokenService("sleepfitctl-seed-only-secret", time.Minute)
	if err != nil {
		return seedResult{}, err
	}
	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordService(), log)

	reg, err := authSvc.Register(ctx, service.RegisterInput{
		Email:    opts.Email,
		Password: opts.Password,
		Name:     opts.Name,
	})
	if errors.Is(err, apperror.ErrConflict) {
		login, err := authSvc.Login(ctx, service.LoginInput{Email: opts.Email, Password: opts.Password})
		if err != nil {
			return seedResult{}, fmt.Errorf("account %s exists: %w", opts.Email, err)
		}
		return seedResult{UserID: login.User.ID, Existing: true}, nil
	}
	if err != nil {
		return seedResult{}, fmt.Errorf("registering %s: %w", opts.Email, err)
	}

	res := seedResult{UserID: reg.User.ID}
	sleepSvc := service.NewSleepService(db, log)
	fitnessSvc := service.NewFitnessService(db, log)

	start := today.AddDate(0, 0, -(opts.Days - 1))
	for i := range opts.Days {
		day := start.AddDate(0, 0, i)
		date := dates.Format(day)

		if _, err := sleepSvc.Create(ctx, res.UserID, sampleSleep(date, day, i)); err != nil {
			return res, fmt.Errorf("seeding sleep for %s: %w", date, err)
		}
		res.Sleep++

		// Rest every third day.
		if i%3 == 2 {
			continue
		}
		if _, err := fitnessSvc.CreateActivity(ctx, res.UserID, sampleActivity(date, i)); err != nil {
			return res, fmt.Errorf("seeding activity for %s: %w", date, err)
		}
		res.Activities++
	}
	return res, nil
}

// sampleSleep is a night that starts the evening before date. Values cycle
// with i so reruns produce the same data.
func sampleSleep(date string, day time.Time, i int) model.NewSleepEntry {
	bed := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(-2 * time.Hour).Add(time.Duration(i%4) * 15 * time.Minute)
	duration := 390 + (i%7)*15
	deep := float64(15 + i%10)
	rem := float64(20 + i%6)

	return model.NewSleepEntry{
		Date:          date,
		StartTime:     bed,
		EndTime:       bed.Add(time.Duration(duration) * time.Minute),
		Duration:      duration,
		Quality:       5 + i%5,
		DeepSleepPct:  deep,
		RemSleepPct:   rem,
		LightSleepPct: 100 - deep - rem,
		AwakeTime:     10 + i%20,
	}
}

var sampleTypes = []model.ActivityType{
	model.ActivityRunning,
	model.ActivityCycling,
	model.ActivityWalking,
	model.ActivityYoga,
	model.ActivitySwimming,
}

func sampleActivity(date string, i int) model.NewActivity {
	typ := sampleTypes[i%len(sampleTypes)]
	duration := float64(25 + (i%5)*10)
	steps := 0
	if typ == model.ActivityRunning || typ == model.ActivityWalking {
		steps = int(duration) * 120
	}
	return model.NewActivity{
		Date:           date,
		Type:           typ,
		Duration:       duration,
		CaloriesBurned: duration * 8,
		Steps:          &steps,
	}
}

func printSeedResult(w io.Writer, opts seedOptions, res seedResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if res.Existing {
		fmt.Fprintf(w, "%s %s already exists, nothing seeded\n", yellow("!"), opts.Email)
		return
	}
	fmt.Fprintf(w, "%s seeded %s (id %s)\n", green("✓"), opts.Email, res.UserID)
	fmt.Fprintf(w, "  sleep entries: %d\n", res.Sleep)
	fmt.Fprintf(w, "  activities:    %d\n", res.Activities)
	fmt.Fprintf(w, "  password:      %s\n", opts.Password)
}
