package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleScenarios = "../harness/testdata/scenarios"

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenarios copies the example scenarios into a fresh
// <tmp>/scenarios directory and returns it. Golden files are not copied.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))

	entries, err := os.ReadDir(exampleScenarios)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(exampleScenarios, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandExampleScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", exampleScenarios)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ donor_search_select")
	assert.Contains(t, out, "✓ palette_pick_politician")
	assert.Contains(t, out, "✓ deep_link_not_found")
	assert.Contains(t, out, "✓ politician_vote_filters")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCommand(t, "text", exampleScenarios, "--filter", "donor_*")
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ donor_search_select")
	assert.NotContains(t, out, "palette_pick_politician")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", exampleScenarios, "--filter", "deep_*")
	require.NoError(t, err, out)

	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	require.Len(t, response.Data.Scenarios, 1)
	assert.Equal(t, "deep_link_not_found", response.Data.Scenarios[0].Name)
	assert.True(t, response.Data.Scenarios[0].Pass)
	assert.Equal(t, 1, response.Data.Passed)
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := copyScenarios(t)

	out, err := runTestCommand(t, "text", dir, "--update", "--filter", "donor_*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")

	written, err := os.ReadFile(filepath.Join(filepath.Dir(dir), "golden", "donor_search_select.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/donor_search_select.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// The regenerated golden file is then compared on the next run.
	out, err = runTestCommand(t, "text", dir, "--filter", "donor_*")
	require.NoError(t, err, out)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	goldenDir := filepath.Join(filepath.Dir(dir), "golden")
	require.NoError(t, os.MkdirAll(goldenDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "deep_link_not_found.golden"), []byte("stale\n"), 0644))

	out, err := runTestCommand(t, "text", dir, "--filter", "deep_*")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ deep_link_not_found")
	assert.Contains(t, out, "Golden file mismatch")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong_location
description: "Expects a location the client never reaches"
start: /donor
assertions:
  - type: location
    value: /politician
`), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_location")
	assert.Contains(t, out, "Expected: /politician")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed\n"), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestHelpText(t *testing.T) {
	out, err := runTestCommand(t, "text", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "scenarios")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "donor-search.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "donor-select.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "palette-pick.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "donor-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "donor-")
	}

	_, err = findScenarioFiles(tmpDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestFindScenarioFilesSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		file     string
		name     string
		expected string
	}{
		{"/path/to/scenarios/a.yaml", "donor_search", "/path/to/golden/donor_search.golden"},
		{"testdata/scenarios/b.yml", "deep_link", "testdata/golden/deep_link.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.file, tc.name))
	}
}
