package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Fixtures string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or top up a local SQLite data set",
		Long: `Load politicians, donors, donations, bills and votes into a SQLite data set,
creating the database if it does not exist. Without --fixtures the built-in
demo data set is loaded. Seeding twice inserts nothing new.

Example:
  papertrail seed --db ./papertrail.db
  papertrail seed --db ./papertrail.db --fixtures ./fixtures.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML fixtures file (default: built-in demo data)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return NewExitError(ExitCommandError, "seed needs --db or store.path")
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	out := opts.formatter(cmd)

	fixtures, err := loadFixtures(opts.Fixtures)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fixtures", err)
	}

	st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	out.VerboseLog("seeding %s", cfg.Store.Path)
	stats, err := st.Seed(cmd.Context(), fixtures)
	if err != nil {
		return WrapExitError(ExitFailure, "seed failed", err)
	}
	logger.Info("data set seeded", "path", cfg.Store.Path,
		"politicians", stats.Politicians, "donors", stats.Donors,
		"donations", stats.Donations, "bills", stats.Bills, "votes", stats.Votes)

	if opts.Format == "json" {
		return out.Success(stats)
	}
	return out.Success(fmt.Sprintf("seeded %s: %d politicians, %d donors, %d donations, %d bills, %d votes",
		cfg.Store.Path, stats.Politicians, stats.Donors, stats.Donations, stats.Bills, stats.Votes))
}

func loadFixtures(path string) (store.Fixtures, error) {
	if path == "" {
		return store.DefaultFixtures()
	}
	f, err := os.Open(path)
	if err != nil {
		return store.Fixtures{}, err
	}
	defer f.Close()
	return store.LoadFixtures(f)
}
