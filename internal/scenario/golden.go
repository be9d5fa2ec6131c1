package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bapdd/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, maps and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		if event.Round != 0 {
			eventMap["round"] = event.Round
		}
		if event.Weights != nil {
			eventMap["weights"] = event.Weights
		}
		if event.Consensus != "" {
			eventMap["consensus"] = event.Consensus
		}
		if event.Leaders != nil {
			eventMap["leaders"] = event.Leaders
		}
		if event.Winner != nil {
			eventMap["winner"] = *event.Winner
		}
		if event.Op != "" {
			eventMap["op"] = event.Op
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"trace":         traceList,
	}
}

// Snapshot renders a result's trace as canonical JSON. The bytes are what
// golden files hold.
func Snapshot(scenarioName, runID string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        runID,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// SnapshotScenario renders the snapshot of a scenario's result, resolving the
// run id the same way Run does.
func SnapshotScenario(scenario *Scenario, result *Result) ([]byte, error) {
	runID := scenario.RunID
	if runID == "" {
		runID = scenario.Name
	}
	return Snapshot(scenario.Name, runID, result)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := SnapshotScenario(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName, runID string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, runID, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
