package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/papertrail/internal/config"
	"github.com/roach88/papertrail/internal/testutil"
)

// executeWithStderr runs the CLI and returns stdout and stderr separately.
func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvLogLevel, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestOpenMetrics(t *testing.T) {
	db := seededDB(t)

	stdout, stderr, err := executeWithStderr(t, "open", "/politician", "--db", db,
		"--search", "warren", "--select", "1", "--metrics")
	require.NoError(t, err)

	assert.Contains(t, stdout, "/politician/1")
	assert.Contains(t, stderr, `papertrail_sequencer_completions_total{outcome="committed",slot="politician.search"} 1`)
	assert.Contains(t, stderr, `papertrail_sequencer_completions_total{outcome="committed",slot="politician.dependent"}`)
	assert.Contains(t, stderr, `papertrail_sequencer_completions_total{outcome="committed",slot="politician.summary"} 1`)
}

func TestOpenMetricsJSONKeepsStdoutClean(t *testing.T) {
	db := seededDB(t)

	stdout, stderr, err := executeWithStderr(t, "open", "/donor", "--db", db,
		"--search", "boeing", "--metrics", "--format", "json")
	require.NoError(t, err)

	assert.NotContains(t, stdout, "papertrail_sequencer_completions_total")
	assert.Contains(t, stderr, `papertrail_sequencer_completions_total{outcome="committed",slot="donor.search"} 1`)
}

func TestOpenWithoutMetricsFlag(t *testing.T) {
	db := seededDB(t)

	_, stderr, err := executeWithStderr(t, "open", "/donor", "--db", db, "--search", "boeing")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "papertrail_sequencer_completions_total")
}

func TestPaletteMetrics(t *testing.T) {
	db := seededDB(t)

	_, stderr, err := executeWithStderr(t, "palette", "warn", "--db", db, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, stderr, `papertrail_sequencer_completions_total{outcome="committed",slot="overlay.search"} 1`)
}

func TestSessionServeMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = seededDB(t)
	ctx := context.Background()

	s, err := startSession(ctx, cfg, testutil.DiscardLogger(), sessionOptions{StartPath: "/politician?search=warren"})
	require.NoError(t, err)
	defer s.close()
	require.NoError(t, s.settle(ctx))

	addr, stop, err := s.serveMetrics("127.0.0.1:0")
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `papertrail_sequencer_completions_total{outcome="committed",slot="politician.search"} 1`)
}

func TestBrowseHasMetricsAddrFlag(t *testing.T) {
	cmd := NewBrowseCommand(&RootOptions{Format: "text"})
	f := cmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, f)
	assert.Equal(t, "", f.DefValue)
}
