package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
	"github.com/roach88/bapdd/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeTestRun inserts a 2-granule run with default parameters.
func writeTestRun(t *testing.T, s *Store, id string, seq int64) ir.RunRecord {
	t.Helper()
	run := ir.RunRecord{
		ID:            id,
		Config:        engine.DefaultConfig(2),
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		SchemaVersion: ir.SchemaVersion,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestRound creates a 2-granule round record with fixed contents.
func createTestRound(runID string, seq, round int64) ir.RoundRecord {
	return ir.RoundRecord{
		RunID:      runID,
		Seq:        seq,
		Round:      round,
		Opinions:   []float64{70, 77},
		Timestamps: []hlc.Timestamp{hlc.New(0, round, 0), hlc.New(0, round, 1)},
		Weights:    []float64{0.7407407407407407, 0.7407407407407407},
		Drift:      [][]float64{{0, 0.35}, {0.35, 0}},
		Consensus:  73.5,
	}
}

// createTestElection creates a two-group election record.
func createTestElection(runID string, seq int64) ir.ElectionRecord {
	return ir.ElectionRecord{
		RunID:     runID,
		Seq:       seq,
		Subgroups: [][]int{{0, 1}, {2, 3}},
		Leaders:   []int{0, 2},
		Winner:    0,
	}
}
