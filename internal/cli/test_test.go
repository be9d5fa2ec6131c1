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

var fixtureDir = filepath.Join("..", "scenario", "testdata")

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenario copies one fixture scenario into dir.
func copyScenario(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name+".yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
}

func TestRunTests_Fixtures(t *testing.T) {
	out, err := executeTest(t, "text", fixtureDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ demo")
	assert.Contains(t, out, "✓ rejections")
	assert.Contains(t, out, "✓ causal_counters")
	assert.Contains(t, out, "✓ priority_ties")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestRunTests_FixturesJSON(t *testing.T) {
	out, err := executeTest(t, "json", fixtureDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)
	assert.Equal(t, 0, resp.Data.Failed)
}

func TestRunTests_Filter(t *testing.T) {
	out, err := executeTest(t, "text", fixtureDir, "--filter", "demo*")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ demo")
	assert.NotContains(t, out, "rejections")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestRunTests_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "priority_ties")

	out, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ priority_ties (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "priority_ties.golden"))
	require.NoError(t, err)
	fixture, err := os.ReadFile(filepath.Join(fixtureDir, "golden", "priority_ties.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(fixture), string(written))

	// A second run compares against the golden just written.
	out, err = executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ priority_ties\n")
}

func TestRunTests_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "priority_ties")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "priority_ties.golden"), []byte("{}"), 0644))

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ priority_ties")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestRunTests_FailingAssertionJSON(t *testing.T) {
	dir := t.TempDir()
	src := `name: wrong_winner
description: "Expects the lower authority to win"
config:
  granules: 2
rounds:
  - opinions: [1, 1]
elections:
  - subgroups: [[0], [1]]
    expect_winner: 1
assertions:
  - type: diagonal_zero
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_winner.yaml"), []byte(src), 0644))

	out, err := executeTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFail, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Contains(t, resp.Data.Scenarios[0].Errors, "elections[0]: expected winner 1, got 0")
}

func TestRunTests_InvalidScenarioFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0644))

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestRunTests_EmptyDirectory(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRunTests_MissingDirectory(t *testing.T) {
	out, err := executeTest(t, "text", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestFindScenarioFiles_InvalidFilter(t *testing.T) {
	_, err := findScenarioFiles(fixtureDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
