package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_CanonicalBytes(t *testing.T) {
	winner := 0
	result := &Result{
		Pass: true,
		Trace: []TraceEvent{
			{Type: EventRound, Seq: 2, Round: 1, Weights: []string{"1.000000", "0.500000"}, Consensus: "1.500000"},
			{Type: EventRejected, Op: EventRound, Code: "LENGTH_MISMATCH"},
			{Type: EventElection, Seq: 3, Leaders: []int{0}, Winner: &winner},
		},
	}

	data, err := Snapshot("snap", "run-1", result)
	require.NoError(t, err)

	want := `{"run_id":"run-1","scenario_name":"snap","trace":[` +
		`{"consensus":"1.500000","round":1,"seq":2,"type":"round","weights":["1.000000","0.500000"]},` +
		`{"code":"LENGTH_MISMATCH","op":"round","type":"rejected"},` +
		`{"leaders":[0],"seq":3,"type":"election","winner":0}]}`
	assert.Equal(t, want, string(data))
}

func TestSnapshot_EmptyTrace(t *testing.T) {
	data, err := Snapshot("empty", "run-1", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"run_id":"run-1","scenario_name":"empty","trace":[]}`, string(data))
}

func TestSnapshotScenario_RunIDDefaultsToName(t *testing.T) {
	data, err := SnapshotScenario(&Scenario{Name: "named"}, NewResult())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"named"`)

	data, err = SnapshotScenario(&Scenario{Name: "named", RunID: "fixed"}, NewResult())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"fixed"`)
}

func TestAssertGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/priority_ties.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, scenario.Name, result))
}
