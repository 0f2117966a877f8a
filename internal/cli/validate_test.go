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

func runValidateCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateExampleScenarios(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "text"}, exampleScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 4 scenario(s) valid")
}

func TestValidateExampleScenariosJSON(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "json"}, exampleScenarios)
	require.NoError(t, err)

	var response struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Valid)
	assert.Equal(t, 4, response.Data.Count)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no scenarios found")
}

func TestValidateInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(`
name: good
description: "Opens the donor page"
start: /donor
assertions: [{type: location, value: /donor}]
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
name: bad
description: "Two gestures in one step"
flow: [{submit: war, back: true}]
assertions: [{type: location, value: /}]
`), 0644))

	out, err := runValidateCommand(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "bad.yaml")
	assert.Contains(t, out, "one gesture per step")
	assert.NotContains(t, out, "good.yaml")
}

func TestValidateInvalidScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: n\ndescription: d\n"), 0644))

	out, err := runValidateCommand(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var response struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.False(t, response.Data.Valid)
	require.Len(t, response.Data.Errors, 1)
	assert.Equal(t, "bad.yaml", response.Data.Errors[0].File)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeInvalidScenario, response.Error.Code)
	assert.Contains(t, response.Error.Message, "assertions list is required")
}

func TestValidateFilter(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "text"}, exampleScenarios, "--filter", "palette_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 1 scenario(s) valid")
}

func TestValidateVerboseOutput(t *testing.T) {
	out, err := runValidateCommand(t, &RootOptions{Format: "text", Verbose: true}, exampleScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 4 scenario file(s)")
	assert.Contains(t, out, "donor_search_select.yaml")
}
