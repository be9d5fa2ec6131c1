package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/sim"
	"github.com/roach88/bapdd/internal/store"
	"github.com/roach88/bapdd/internal/testutil"
)

// recordDemoJournal journals three demo rounds and the demo election under
// runID and returns the database path.
func recordDemoJournal(t *testing.T, runID string) string {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bapdd.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	eng, err := engine.New(engine.DefaultConfig(sim.DemoGranules))
	require.NoError(t, err)

	s, err := sim.New(ctx, eng,
		sim.WithJournal(st),
		sim.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
		sim.WithPhysicalClock(testutil.NewDeterministicClock(0, 1).Now),
	)
	require.NoError(t, err)

	_, err = s.Run(ctx, sim.DemoOpinions(), 3, nil)
	require.NoError(t, err)
	_, err = s.Elect(ctx, sim.DemoPartition())
	require.NoError(t, err)

	return dbPath
}

// forgeRound appends a run whose only round carries a wrong hash.
func forgeRound(t *testing.T, dbPath, runID string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	seq, err := st.MaxSeq(ctx)
	require.NoError(t, err)

	require.NoError(t, st.WriteRun(ctx, ir.RunRecord{
		ID: runID, Config: engine.DefaultConfig(2), Seq: seq + 1,
		EngineVersion: ir.EngineVersion, SchemaVersion: ir.SchemaVersion,
	}))
	require.NoError(t, st.WriteRound(ctx, ir.RoundRecord{
		RunID:      runID,
		Seq:        seq + 2,
		Round:      1,
		Opinions:   []float64{1, 2},
		Timestamps: []hlc.Timestamp{hlc.New(0, 1, 0), hlc.New(0, 1, 1)},
		Weights:    []float64{1, 1},
		Drift:      [][]float64{{0, 0}, {0, 0}},
		Consensus:  1.5,
		Hash:       "forged",
	}))
}

func executeReplay(t *testing.T, format string, verbose bool, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format, Verbose: verbose})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplay_AllRunsDeterministic(t *testing.T) {
	dbPath := recordDemoJournal(t, "demo-run")

	out, err := executeReplay(t, "text", false, "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 1 run(s)")
	assert.Contains(t, out, "✓ Run: demo-run")
	assert.Contains(t, out, "  Events: 3 rounds, 1 elections")
	assert.Contains(t, out, "✓ All runs verified deterministic")
}

func TestReplay_SingleRunJSON(t *testing.T) {
	dbPath := recordDemoJournal(t, "demo-run")

	out, err := executeReplay(t, "json", false, "--db", dbPath, "--run", "demo-run")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "demo-run", resp.Data.Runs[0].RunID)
	assert.Equal(t, 3, resp.Data.Runs[0].Rounds)
	assert.Equal(t, 1, resp.Data.Runs[0].Elections)
}

func TestReplay_ForgedHash(t *testing.T) {
	dbPath := recordDemoJournal(t, "demo-run")
	forgeRound(t, dbPath, "forged-run")

	out, err := executeReplay(t, "text", true, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "Replay Summary: 2 run(s)")
	assert.Contains(t, out, "✓ Run: demo-run")
	assert.Contains(t, out, "✗ Run: forged-run")
	assert.Contains(t, out, "recorded forged, replayed ")
	assert.Contains(t, out, "Warning: Non-deterministic replay detected!")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplay_ForgedHashJSON(t *testing.T) {
	dbPath := recordDemoJournal(t, "demo-run")
	forgeRound(t, dbPath, "forged-run")

	out, err := executeReplay(t, "json", false, "--db", dbPath, "--run", "forged-run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	require.Len(t, resp.Data.Runs[0].Mismatches, 1)
	assert.Equal(t, "round", resp.Data.Runs[0].Mismatches[0].Kind)
}

func TestReplay_UnknownRun(t *testing.T) {
	dbPath := recordDemoJournal(t, "demo-run")

	out, err := executeReplay(t, "text", false, "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: missing")
}

func TestReplay_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", false, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestReplay_MissingDatabase(t *testing.T) {
	out, err := executeReplay(t, "text", false, "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}

func TestReplay_RequiresDB(t *testing.T) {
	_, err := executeReplay(t, "text", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
