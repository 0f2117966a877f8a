package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/tui"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Start       string
	MetricsAddr string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse interactively in the terminal",
		Long: `Open an interactive terminal view. Type to search the current page, press
enter to select, tab to compare politicians, esc to go back and ctrl+k for
the command palette.

Example:
  papertrail browse
  papertrail browse /donor/101 --db ./papertrail.db
  papertrail browse --metrics-addr 127.0.0.1:9091`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := "/"
			if len(args) == 1 {
				start = args[0]
			}
			return runBrowse(cmd, opts, start)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve client metrics on this address under /metrics")

	return cmd
}

func runBrowse(cmd *cobra.Command, opts *BrowseOptions, start string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	// The terminal belongs to the view; logs go to stderr only when asked.
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	if !opts.Verbose {
		logger = discardLogger()
	}

	bridge := &tui.Bridge{}
	s, err := startSession(cmd.Context(), cfg, logger, sessionOptions{
		StartPath: start,
		OnChange:  bridge.Changed,
	})
	if err != nil {
		return err
	}
	defer s.close()

	if opts.MetricsAddr != "" {
		_, stop, err := s.serveMetrics(opts.MetricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	if err := tui.Run(cmd.Context(), s, bridge); err != nil {
		return WrapExitError(ExitFailure, "terminal view failed", err)
	}
	return nil
}
