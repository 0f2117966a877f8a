package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/route"
)

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	*RootOptions

	Search   string
	Select   int64
	Compare  []int64
	Page     int
	Sort     string
	Types    []string
	Subjects []string
	Topic    string

	ShowMetrics bool
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a location and print what it shows",
		Long: `Open a client location exactly as a deep link would, wait for it to load,
then print the rendered state.

Gestures run in order after the location loads: --search, then --select or
--compare, then the vote filters and --topic.

Example:
  papertrail open /politician/1
  papertrail open /politician --search Warren --select 1 --sort ASC --type hr
  papertrail open "/politician/compare?ids=1,2" --format json
  papertrail open /donor --search Boeing --select 101`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "search the mounted page for text")
	cmd.Flags().Int64Var(&opts.Select, "select", 0, "select a result by id")
	cmd.Flags().Int64SliceVar(&opts.Compare, "compare", nil, "toggle politicians into the comparison by id")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "vote record page")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "vote order by bill date (ASC|DESC)")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "bill number prefixes to keep (hr, s, ...)")
	cmd.Flags().StringSliceVar(&opts.Subjects, "subject", nil, "bill subjects to keep")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "filter the donation summary by topic")
	cmd.Flags().BoolVar(&opts.ShowMetrics, "metrics", false, "print request and sequencer counters to stderr")

	return cmd
}

func runOpen(cmd *cobra.Command, opts *OpenOptions, path string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	s, err := startSession(ctx, cfg, logger, sessionOptions{StartPath: path})
	if err != nil {
		return err
	}
	defer s.close()

	steps := opts.steps()
	if err := s.settle(ctx); err != nil {
		return WrapExitError(ExitFailure, "open failed", err)
	}
	for _, step := range steps {
		var stepErr error
		if err := s.do(ctx, func(a *app.App) { stepErr = step(a) }); err != nil {
			return WrapExitError(ExitFailure, "open failed", err)
		}
		if stepErr != nil {
			return WrapExitError(ExitCommandError, "gesture failed", stepErr)
		}
		if err := s.settle(ctx); err != nil {
			return WrapExitError(ExitFailure, "open failed", err)
		}
	}

	st, err := s.state(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "open failed", err)
	}
	if err := out.State(st); err != nil {
		return err
	}
	if opts.ShowMetrics {
		if err := s.writeMetrics(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	return hydrationFailure(st)
}

type gesture func(*app.App) error

// steps lists the requested gestures in application order.
func (o *OpenOptions) steps() []gesture {
	var steps []gesture
	if o.Search != "" {
		text := o.Search
		steps = append(steps, func(a *app.App) error {
			if p, ok := a.Politicians(); ok {
				p.SubmitSearch(text)
				return nil
			}
			if p, ok := a.Donors(); ok {
				p.SubmitSearch(text)
				return nil
			}
			return errNoPage
		})
	}
	if o.Select != 0 {
		id := o.Select
		steps = append(steps, func(a *app.App) error {
			if p, ok := a.Politicians(); ok {
				return p.SelectResult(id)
			}
			if p, ok := a.Donors(); ok {
				return p.SelectResult(id)
			}
			return errNoPage
		})
	}
	if len(o.Compare) > 0 {
		ids := o.Compare
		steps = append(steps, func(a *app.App) error {
			p, ok := a.Politicians()
			if !ok {
				return fmt.Errorf("--compare needs a politician page")
			}
			for _, id := range ids {
				if err := p.ToggleComparison(id); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if o.Page > 0 || o.Sort != "" || o.Types != nil || o.Subjects != nil || o.Topic != "" {
		q := *o
		steps = append(steps, func(a *app.App) error {
			p, ok := a.Politicians()
			if !ok {
				return fmt.Errorf("vote filters need a politician page")
			}
			sel := p.Selection()
			if q.Sort != "" {
				sel.SetSort(model.ParseSortOrder(q.Sort))
			}
			if q.Types != nil {
				sel.SetBillTypes(lower(q.Types))
			}
			if q.Subjects != nil {
				sel.SetSubjects(q.Subjects)
			}
			if q.Page > 0 {
				sel.SetPage(q.Page)
			}
			if q.Topic != "" {
				sel.SetTopic(q.Topic)
			}
			return nil
		})
	}
	return steps
}

var errNoPage = fmt.Errorf("no page is mounted at this location (try %s or %s)",
	route.SearchPath(model.KindPolitician), route.SearchPath(model.KindDonor))

func lower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
