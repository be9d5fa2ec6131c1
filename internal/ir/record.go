package ir

import (
	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
)

// RunRecord describes one engine instance and the configuration it was built
// from. Replay rebuilds a fresh engine from Config.
type RunRecord struct {
	ID            string        `json:"id"`
	Config        engine.Config `json:"config"`
	Seq           int64         `json:"seq"`
	EngineVersion string        `json:"engine_version"`
	SchemaVersion string        `json:"schema_version"`
}

// RoundRecord is one UpdateDrift call: its inputs and the state it produced.
type RoundRecord struct {
	RunID      string          `json:"run_id"`
	Seq        int64           `json:"seq"`
	Round      int64           `json:"round"`
	Opinions   []float64       `json:"opinions"`
	Timestamps []hlc.Timestamp `json:"timestamps"`
	Weights    []float64       `json:"weights"`
	Drift      [][]float64     `json:"drift"`
	Consensus  float64         `json:"consensus"`
	Hash       string          `json:"hash"`
}

// ElectionRecord is one ResolvePartition call.
type ElectionRecord struct {
	RunID     string  `json:"run_id"`
	Seq       int64   `json:"seq"`
	Subgroups [][]int `json:"subgroups"`
	Leaders   []int   `json:"leaders"`
	Winner    int     `json:"winner"`
	Hash      string  `json:"hash"`
}

// canonicalRound builds the hashable form of a round. Seq and RunID are
// excluded: the hash identifies what the engine computed, so a replay into a
// different run reproduces it.
func canonicalRound(r RoundRecord) map[string]any {
	stamps := make([]any, len(r.Timestamps))
	for i, ts := range r.Timestamps {
		stamps[i] = map[string]any{
			"pt": ts.PhysicalTime,
			"l":  ts.LogicalCounter,
			"c":  ts.CausalID,
		}
	}
	drift := make([]any, len(r.Drift))
	for i, row := range r.Drift {
		drift[i] = FloatStrings(row)
	}
	return map[string]any{
		"round":      r.Round,
		"opinions":   FloatStrings(r.Opinions),
		"timestamps": stamps,
		"weights":    FloatStrings(r.Weights),
		"drift":      drift,
		"consensus":  FloatString(r.Consensus),
	}
}

func canonicalElection(e ElectionRecord) map[string]any {
	groups := make([]any, len(e.Subgroups))
	for i, g := range e.Subgroups {
		groups[i] = g
	}
	return map[string]any{
		"subgroups": groups,
		"leaders":   e.Leaders,
		"winner":    e.Winner,
	}
}
