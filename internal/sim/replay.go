package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/store"
)

// Mismatch is one recorded event whose recomputation disagrees.
type Mismatch struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"` // "round" or "election"
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayReport is the determinism verdict for one run.
type ReplayReport struct {
	RunID         string     `json:"run_id"`
	Rounds        int        `json:"rounds"`
	Elections     int        `json:"elections"`
	Mismatches    []Mismatch `json:"mismatches"`
	Deterministic bool       `json:"deterministic"`
}

// Replay feeds a journaled run's recorded inputs into a fresh engine built
// from the recorded configuration and compares every recomputed hash with
// the recorded one.
//
// Replay never writes to the journal and never resumes the recorded run; the
// fresh engine is discarded afterwards.
func Replay(ctx context.Context, st *store.Store, runID string) (ReplayReport, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	rounds, err := st.ReadRounds(ctx, runID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}
	elections, err := st.ReadElections(ctx, runID)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	eng, err := engine.New(run.Config)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: %w", runID, err)
	}

	report := ReplayReport{
		RunID:      runID,
		Rounds:     len(rounds),
		Elections:  len(elections),
		Mismatches: []Mismatch{},
	}

	for _, recorded := range rounds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		replayed, err := replayRound(eng, recorded)
		if err != nil {
			return report, fmt.Errorf("replay %s seq %d: %w", runID, recorded.Seq, err)
		}
		if replayed != recorded.Hash {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: recorded.Seq, Kind: "round", Recorded: recorded.Hash, Replayed: replayed,
			})
		}
	}

	// Elections read only the static priority map, so their position relative
	// to rounds does not matter.
	for _, recorded := range elections {
		replayed, err := replayElection(eng, recorded)
		if err != nil {
			return report, fmt.Errorf("replay %s seq %d: %w", runID, recorded.Seq, err)
		}
		if replayed != recorded.Hash {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: recorded.Seq, Kind: "election", Recorded: recorded.Hash, Replayed: replayed,
			})
		}
	}

	report.Deterministic = len(report.Mismatches) == 0
	slog.Info("replay finished",
		"run_id", runID,
		"rounds", report.Rounds,
		"elections", report.Elections,
		"deterministic", report.Deterministic,
	)
	return report, nil
}

// ReplayAll replays every run in the journal, ordered by seq.
func ReplayAll(ctx context.Context, st *store.Store) ([]ReplayReport, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	reports := make([]ReplayReport, 0, len(runs))
	for _, run := range runs {
		report, err := Replay(ctx, st, run.ID)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func replayRound(eng *engine.Engine, recorded ir.RoundRecord) (string, error) {
	if err := eng.UpdateDrift(recorded.Opinions, recorded.Timestamps); err != nil {
		return "", err
	}
	consensus, err := eng.ConsensusOpinion(recorded.Opinions)
	if err != nil {
		return "", err
	}
	snap := eng.Snapshot()
	return ir.RoundHash(ir.RoundRecord{
		Round:      snap.Round,
		Opinions:   recorded.Opinions,
		Timestamps: recorded.Timestamps,
		Weights:    snap.Weights,
		Drift:      snap.Drift,
		Consensus:  consensus,
	})
}

func replayElection(eng *engine.Engine, recorded ir.ElectionRecord) (string, error) {
	leaders, err := eng.GroupLeaders(recorded.Subgroups)
	if err != nil {
		return "", err
	}
	winner, err := eng.ResolvePartition(recorded.Subgroups)
	if err != nil {
		return "", err
	}
	return ir.ElectionHash(ir.ElectionRecord{
		Subgroups: recorded.Subgroups,
		Leaders:   leaders,
		Winner:    winner,
	})
}
