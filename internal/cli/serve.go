package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/papertrail/internal/dataserver"
	"github.com/roach88/papertrail/internal/metrics"
	"github.com/roach88/papertrail/internal/store"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// ready receives the bound address once the listener is up (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	return newServeCommand(opts)
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local data set over the data service API",
		Long: `Serve a SQLite data set over the same HTTP API the client talks to, with
Prometheus metrics on /metrics. Point other clients at it with
PAPERTRAIL_API_URL.

Example:
  papertrail serve --db ./papertrail.db
  papertrail serve --db ./papertrail.db --listen 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default: serve.listen)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return NewExitError(ExitCommandError, "serve needs --db or store.path")
	}
	addr := cfg.Serve.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	m := metrics.New()
	h := dataserver.New(st, logger, m)
	srv := &http.Server{
		Handler:           h.Router(map[string]http.Handler{"/metrics": m.Handler()}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	logger.Info("data service listening", "addr", ln.Addr().String(), "db", cfg.Store.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", cfg.Store.Path, ln.Addr())
	if opts.ready != nil {
		opts.ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	logger.Info("data service stopped gracefully")
	return nil
}
