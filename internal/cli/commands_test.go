package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/selection"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrail.db")

	out, err := execute(t, "seed", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "seeded "+path+": 11 politicians, 9 donors, 19 donations, 13 bills, 26 votes\n", out)

	out, err = execute(t, "seed", "--db", path, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data["politicians"], "second seed inserts nothing")
	assert.Equal(t, 0, resp.Data["donations"])
}

func TestSeed_CustomFixtures(t *testing.T) {
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, writeFile(fixtures, `
politicians:
  - {id: 1, first_name: Ada, last_name: Lovelace, party: Whig, state: London, is_active: true}
`))

	out, err := execute(t, "seed", "--db", filepath.Join(dir, "p.db"), "--fixtures", fixtures)
	require.NoError(t, err)
	assert.Contains(t, out, "1 politicians, 0 donors")
}

func TestSeed_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "seed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpen_PoliticianDetail(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "open", "/politician/1", "--db", db)
	require.NoError(t, err)

	for _, line := range []string{
		"location: /politician/1\n",
		"page: politician detail\n",
		"  selection: selected\n",
		"    #1 Elizabeth Warren (Democrat, Massachusetts) Senator\n",
		"    votes: page 1/2 (12 total) sort=DESC\n",
		"      Mar 19, 2020 Yea  s 3548: CARES Act (Senate) [Finance]\n",
		"    summary (all):\n      Education $5,000\n      Health Professionals $5,000\n",
	} {
		assert.Contains(t, out, line)
	}
}

func TestOpen_Gestures(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "open", "/politician", "--db", db,
		"--search", "Warren", "--select", "1", "--sort", "asc", "--type", "HR", "--topic", "Health")
	require.NoError(t, err)

	assert.Contains(t, out, "location: /politician/1\n")
	assert.Contains(t, out, "sort=ASC\n")
	assert.Contains(t, out, "filters: type=hr subject=\n")
	assert.Contains(t, out, "summary (Health):\n")
	assert.NotContains(t, out, " s 3548:")
}

func TestOpen_Comparison(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "open", "/politician", "--db", db, "--search", "war", "--compare", "1,10")
	require.NoError(t, err)
	assert.Contains(t, out, "location: /politician/compare?ids=1,10\n")
	assert.Contains(t, out, "comparison: comparing\n")
}

func TestOpen_DonorJSON(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "open", "/donor/101", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   app.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Donor)
	assert.Equal(t, selection.Selected, resp.Data.Donor.SelectStatus)
	require.NotNil(t, resp.Data.Donor.Selected)
	assert.Equal(t, "Boeing Co", resp.Data.Donor.Selected.Name)
	assert.Len(t, resp.Data.Donor.Dependent, 3)
}

func TestOpen_NotFound(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "open", "/politician/99", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "hydration error: NOT_FOUND /politician/99\n")

	out, err = execute(t, "open", "/elsewhere", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "page: not found\n")
}

func TestOpen_SelectOutsideResults(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, "open", "/politician", "--db", db, "--search", "Warren", "--select", "4")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPalette_Results(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "palette", "war", "--db", db, "--from", "/donor")
	require.NoError(t, err)
	assert.Contains(t, out, "overlay: open theme=light\n")
	assert.Contains(t, out, `  text: "war"`)
	assert.Contains(t, out, "  politician #10 Mark Warner (Democrat, Virginia) Senator\n")
	assert.Contains(t, out, "  politician #1 Elizabeth Warren (Democrat, Massachusetts) Senator\n")
	assert.Contains(t, out, "location: /donor\n")
}

func TestPalette_Pick(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "palette", "boeing", "--db", db, "--pick", "donor:101")
	require.NoError(t, err)
	assert.Contains(t, out, "location: /donor/101\n")
	assert.Contains(t, out, "overlay: closed")
	assert.Contains(t, out, "    donations: 3 totalling $17,700\n")
}

func TestPalette_Action(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "palette", "--action", "toggle-theme", "--from", "/donor", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "overlay: closed theme=dark\n")

	_, err = execute(t, "palette", "--action", "launch", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "palette", "--db", db)
	require.Error(t, err)
}

func TestSubjects(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "subjects", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Civil Rights", lines[0])
	assert.Contains(t, lines, "Health")
	assert.Len(t, lines, 11)

	out, err = execute(t, "subjects", "--topics")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(model.Topics(), "\n")+"\n", out)
}

func TestServe(t *testing.T) {
	db := seededDB(t)
	t.Setenv("PAPERTRAIL_DB", "")

	ready := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", Database: db},
		Listen:      "127.0.0.1:0",
		ready:       ready,
	}
	cmd := newServeCommand(opts)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	resp, err := http.Get("http://" + addr + "/api/politician/1")
	require.NoError(t, err)
	var pol model.Politician
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pol))
	resp.Body.Close()
	assert.Equal(t, "Warren", pol.LastName)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/api/politician/{id}"`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
