// Command sleepfitctl is the operator CLI: schema migrations, demo data and
// build information.
package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "sleepfitctl",
	Short:         "Operate a sleepfit-stats database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

type cliEnv struct {
	DBPath string `env:"DB_PATH" envDefault:"data/sleepfit.db"`
}

func init() {
	var defaults cliEnv
	if err := env.Parse(&defaults); err != nil {
		defaults.DBPath = "data/sleepfit.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaults.DBPath, "path to the SQLite database (env DB_PATH)")
}

// openDB opens the database and brings the schema up to date.
func openDB() (*sqliteRepo.DB, error) {
	db, err := sqliteRepo.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
