package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/config"
	"github.com/roach88/papertrail/internal/debounce"
	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/metrics"
	"github.com/roach88/papertrail/internal/overlay"
	"github.com/roach88/papertrail/internal/store"
)

// settleTimeout bounds how long a one-shot command waits for the client to
// go quiet.
const settleTimeout = 30 * time.Second

// openGateway returns the local store when a data set path is configured,
// otherwise an HTTP client for the data service.
func openGateway(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (gateway.Gateway, func() error, error) {
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		logger.Debug("using local data set", "path", cfg.Store.Path)
		return st, st.Close, nil
	}
	logger.Debug("using data service", "base_url", cfg.API.BaseURL)
	c := gateway.NewClient(cfg.API.BaseURL, cfg.API.Timeout,
		gateway.WithLogger(logger),
		gateway.WithObserver(m),
	)
	return c, func() error { return nil }, nil
}

// session is a running client: the event loop, its gateway and the app
// shell mounted on it.
type session struct {
	app     *app.App
	metrics *metrics.Metrics
	logger  *slog.Logger

	cancel  context.CancelFunc
	done    chan error
	closeGW func() error
}

type sessionOptions struct {
	StartPath string
	Scheduler debounce.Scheduler
	OnChange  func()
}

func startSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, so sessionOptions) (*session, error) {
	m := metrics.New()
	gw, closeGW, err := openGateway(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	e := engine.New(engine.WithLogger(logger))
	a, err := app.New(e, app.Options{
		Gateway:       gw,
		StartPath:     so.StartPath,
		Logger:        logger,
		Scheduler:     so.Scheduler,
		InputDelay:    cfg.Input.Debounce,
		OverlayDelay:  cfg.Overlay.Debounce,
		OverlayCap:    cfg.Overlay.Cap,
		Theme:         overlay.Theme(cfg.Overlay.Theme),
		MaxSteps:      cfg.MaxWriteBacks,
		SequencerOpts: []engine.SequencerOption{engine.WithSequencerObserver(m)},
		OnChange:      so.OnChange,
	})
	if err != nil {
		_ = closeGW()
		return nil, WrapExitError(ExitCommandError, "invalid start location", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{
		app:     a,
		metrics: m,
		logger:  logger,
		cancel:  cancel,
		done:    make(chan error, 1),
		closeGW: closeGW,
	}
	go func() { s.done <- e.Run(runCtx) }()
	a.Start()
	return s, nil
}

// do runs fn on the loop.
func (s *session) do(ctx context.Context, fn func(*app.App)) error {
	return s.app.Do(ctx, fn)
}

// settle fires pending debounces and waits until no call is in flight.
func (s *session) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	for {
		if err := s.app.Settle(ctx); err != nil {
			return fmt.Errorf("waiting for the client to settle: %w", err)
		}
		var flushed bool
		if err := s.do(ctx, func(a *app.App) { flushed = a.Flush() }); err != nil {
			return err
		}
		if !flushed {
			return nil
		}
	}
}

// Post queues fn on the loop.
func (s *session) Post(fn func(*app.App)) bool {
	return s.app.Post(fn)
}

// State copies the client state.
func (s *session) State(ctx context.Context) (app.State, error) {
	return s.state(ctx)
}

func (s *session) state(ctx context.Context) (app.State, error) {
	var st app.State
	err := s.do(ctx, func(a *app.App) { st = a.State() })
	return st, err
}

// writeMetrics writes the session's sequencer and gateway counters to w.
func (s *session) writeMetrics(w io.Writer) error {
	if err := s.metrics.WriteText(w); err != nil {
		return WrapExitError(ExitFailure, "failed to write metrics", err)
	}
	return nil
}

// serveMetrics exposes the session's registry on addr under /metrics until
// the returned stop func is called. It returns the bound address.
func (s *session) serveMetrics(addr string) (string, func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, WrapExitError(ExitCommandError, "failed to listen for metrics", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("client metrics listening", "addr", ln.Addr().String())

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("metrics server shutdown", "error", err)
		}
	}
	return ln.Addr().String(), stop, nil
}

// close unmounts everything, stops the loop and releases the gateway.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.do(ctx, func(a *app.App) { a.Close() }); err != nil {
		s.logger.Debug("close on loop", "error", err)
	}
	s.cancel()
	<-s.done
	if err := s.closeGW(); err != nil {
		s.logger.Error("error closing gateway", "error", err)
	}
}

// hydrationFailure turns a failed cold start into an exit error.
func hydrationFailure(st app.State) error {
	var failed error
	switch {
	case st.Politician != nil && st.Politician.HydrationError != nil:
		failed = st.Politician.HydrationError
	case st.Donor != nil && st.Donor.HydrationError != nil:
		failed = st.Donor.HydrationError
	case st.NotFound:
		return NewExitError(ExitFailure, "no page at "+st.Location)
	default:
		return nil
	}
	return WrapExitError(ExitFailure, "could not load "+st.Location, failed)
}
