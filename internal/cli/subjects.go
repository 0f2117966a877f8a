package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/metrics"
	"github.com/roach88/papertrail/internal/model"
)

// SubjectsOptions holds flags for the subjects command.
type SubjectsOptions struct {
	*RootOptions
	Topics bool
}

// NewSubjectsCommand creates the subjects command.
func NewSubjectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubjectsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List the bill subjects votes can be filtered by",
		Long: `List every bill subject known to the data service, in alphabetical order.
With --topics, list the donation summary topics instead.

Example:
  papertrail subjects
  papertrail subjects --topics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubjects(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Topics, "topics", false, "list donation summary topics")

	return cmd
}

func runSubjects(cmd *cobra.Command, opts *SubjectsOptions) error {
	out := opts.formatter(cmd)
	if opts.Topics {
		return out.Lines(model.Topics())
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	gw, closeGW, err := openGateway(cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGW(); err != nil {
			logger.Error("error closing gateway", "error", err)
		}
	}()

	subjects, err := gw.GetBillSubjects(cmd.Context())
	if err != nil {
		_ = out.Error(string(gateway.Classify(err)), "could not load bill subjects", err.Error())
		return WrapExitError(ExitFailure, "subjects failed", err)
	}
	return out.Lines(subjects)
}
