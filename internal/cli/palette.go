package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
)

// PaletteOptions holds flags for the palette command.
type PaletteOptions struct {
	*RootOptions

	From   string
	Pick   string
	Action string

	ShowMetrics bool
}

// NewPaletteCommand creates the palette command.
func NewPaletteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaletteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "palette [text]",
		Short: "Search politicians and donors at once from the command palette",
		Long: `Open the command palette over a location, type text and print the capped
politician and donor results. --pick selects one of them and --action runs a
palette command instead of searching; either prints the resulting state.

Actions: ` + actionNames() + `

Example:
  papertrail palette war
  papertrail palette boeing --pick donor:101
  papertrail palette --from /donor/101 --action toggle-theme`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			}
			return runPalette(cmd, opts, text)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "/", "location the palette opens over")
	cmd.Flags().StringVar(&opts.Pick, "pick", "", "select a result as kind:id (politician:1, donor:101)")
	cmd.Flags().StringVar(&opts.Action, "action", "", "run a palette action")
	cmd.Flags().BoolVar(&opts.ShowMetrics, "metrics", false, "print request and sequencer counters to stderr")

	return cmd
}

func runPalette(cmd *cobra.Command, opts *PaletteOptions, text string) error {
	if text == "" && opts.Action == "" {
		return NewExitError(ExitCommandError, "palette needs search text or --action")
	}
	var pick *model.EntityRef
	if opts.Pick != "" {
		ref, err := model.ParseRef(opts.Pick)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --pick", err)
		}
		pick = &ref
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	s, err := startSession(ctx, cfg, logger, sessionOptions{StartPath: opts.From})
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.settle(ctx); err != nil {
		return WrapExitError(ExitFailure, "palette failed", err)
	}

	var actionErr error
	err = s.do(ctx, func(a *app.App) {
		o := a.Overlay()
		o.HandleKey(overlay.ParseKey("ctrl+k"))
		if opts.Action != "" {
			actionErr = o.Run(overlay.Action(opts.Action))
			return
		}
		o.SetText(text)
	})
	if err != nil {
		return WrapExitError(ExitFailure, "palette failed", err)
	}
	if actionErr != nil {
		return WrapExitError(ExitCommandError, "palette action failed", actionErr)
	}
	if err := s.settle(ctx); err != nil {
		return WrapExitError(ExitFailure, "palette failed", err)
	}

	if pick != nil {
		var pickErr error
		if err := s.do(ctx, func(a *app.App) { pickErr = a.Overlay().SelectResult(*pick) }); err != nil {
			return WrapExitError(ExitFailure, "palette failed", err)
		}
		if pickErr != nil {
			return WrapExitError(ExitFailure, "pick failed", pickErr)
		}
		if err := s.settle(ctx); err != nil {
			return WrapExitError(ExitFailure, "palette failed", err)
		}
	}

	st, err := s.state(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "palette failed", err)
	}
	if err := out.State(st); err != nil {
		return err
	}
	if opts.ShowMetrics {
		return s.writeMetrics(cmd.ErrOrStderr())
	}
	return nil
}

func actionNames() string {
	names := make([]string, 0, len(overlay.Actions()))
	for _, a := range overlay.Actions() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
