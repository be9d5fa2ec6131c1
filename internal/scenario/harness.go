package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/sim"
	"github.com/roach88/bapdd/internal/store"
	"github.com/roach88/bapdd/internal/testutil"
)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	sim    *sim.Simulator
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger

	// consensus of the last applied round, nil before any round applies
	consensus *float64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh engine with a fresh in-memory journal.
// Physical time comes from a deterministic clock and the run id is fixed, so
// the same scenario always produces the same trace.
//
// Execution flow:
// 1. Build the engine from the scenario config
// 2. Apply rounds in order, checking expected rejections
// 3. Resolve elections, checking expected winners and rejections
// 4. Replay the journal into another fresh engine and require identical hashes
// 5. Evaluate assertions against the final engine
//
// An error is returned only when the scenario cannot run at all (invalid
// config, journal failure). Failed expectations are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg := buildConfig(scenario.Config)
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = scenario.Name
	}

	clock := testutil.NewDeterministicClock(0, 1)
	s, err := sim.New(ctx, eng,
		sim.WithJournal(st),
		sim.WithPhysicalClock(clock.Now),
		sim.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		sim:    s,
		store:  st,
		clock:  clock,
		logger: slog.Default().With("scenario", scenario.Name),
	}

	result := NewResult()
	if err := h.executeRounds(ctx, scenario.Rounds, result); err != nil {
		return nil, fmt.Errorf("failed to execute rounds: %w", err)
	}
	if err := h.executeElections(ctx, scenario.Elections, result); err != nil {
		return nil, fmt.Errorf("failed to execute elections: %w", err)
	}

	report, err := sim.Replay(ctx, st, s.RunID())
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	if !report.Deterministic {
		result.AddError(fmt.Sprintf("replay diverged at %d recorded events", len(report.Mismatches)))
	}

	state := &State{Engine: eng, Consensus: h.consensus}
	for _, msg := range EvaluateAssertions(state, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished", "pass", result.Pass, "events", len(result.Trace))
	return result, nil
}

// buildConfig fills omitted parameters with engine defaults.
func buildConfig(spec ConfigSpec) engine.Config {
	n := spec.Granules
	if n == 0 {
		n = engine.DefaultGranules
	}
	cfg := engine.DefaultConfig(n)
	if spec.Alpha != nil {
		cfg.Alpha = *spec.Alpha
	}
	if spec.Beta != nil {
		cfg.Beta = *spec.Beta
	}
	if len(spec.Priority) > 0 {
		cfg.Priority = engine.PriorityMap(spec.Priority).Clone()
	}
	return cfg
}

// executeRounds applies every round step, expanding repeats.
func (h *Harness) executeRounds(ctx context.Context, rounds []RoundStep, result *Result) error {
	for i, step := range rounds {
		times := max(step.Repeat, 1)
		for k := 0; k < times; k++ {
			label := fmt.Sprintf("rounds[%d]", i)
			if times > 1 {
				label = fmt.Sprintf("rounds[%d] (repeat %d)", i, k+1)
			}

			var (
				rec ir.RoundRecord
				err error
			)
			if len(step.Counters) > 0 {
				physical := h.clock.Now()
				stamps := make([]hlc.Timestamp, len(step.Counters))
				for g, counter := range step.Counters {
					stamps[g] = hlc.New(physical, counter, int64(g))
				}
				rec, err = h.sim.StepWithTimestamps(ctx, step.Opinions, stamps)
			} else {
				rec, err = h.sim.Step(ctx, step.Opinions)
			}

			applied, fatal := h.checkOutcome(result, label, EventRound, step.ExpectError, err)
			if fatal != nil {
				return fatal
			}
			if !applied {
				continue
			}

			consensus := rec.Consensus
			h.consensus = &consensus
			result.Trace = append(result.Trace, TraceEvent{
				Type:      EventRound,
				Seq:       rec.Seq,
				Round:     rec.Round,
				Weights:   formatTraceFloats(rec.Weights),
				Consensus: formatTraceFloat(rec.Consensus),
			})
		}
	}
	return nil
}

// executeElections resolves every election step.
func (h *Harness) executeElections(ctx context.Context, elections []ElectionStep, result *Result) error {
	for i, step := range elections {
		label := fmt.Sprintf("elections[%d]", i)

		rec, err := h.sim.Elect(ctx, step.Subgroups)
		applied, fatal := h.checkOutcome(result, label, EventElection, step.ExpectError, err)
		if fatal != nil {
			return fatal
		}
		if !applied {
			continue
		}

		winner := rec.Winner
		result.Trace = append(result.Trace, TraceEvent{
			Type:    EventElection,
			Seq:     rec.Seq,
			Leaders: rec.Leaders,
			Winner:  &winner,
		})

		if step.ExpectWinner != nil && *step.ExpectWinner != rec.Winner {
			result.AddError(fmt.Sprintf("%s: expected winner %d, got %d", label, *step.ExpectWinner, rec.Winner))
		}
	}
	return nil
}

// checkOutcome compares an operation's error with the expected error code.
// It reports whether the operation was applied. A non-input error is fatal.
func (h *Harness) checkOutcome(result *Result, label, op, expectCode string, err error) (applied bool, fatal error) {
	if err != nil && !engine.IsInputError(err) {
		return false, fmt.Errorf("%s: %w", label, err)
	}

	if err != nil {
		code := string(engine.CodeOf(err))
		h.logger.Debug("step rejected", "step", label, "code", code)
		result.Trace = append(result.Trace, TraceEvent{Type: EventRejected, Op: op, Code: code})
		switch {
		case expectCode == "":
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		case expectCode != code:
			result.AddError(fmt.Sprintf("%s: expected error %s, got %s", label, expectCode, code))
		}
		return false, nil
	}

	if expectCode != "" {
		result.AddError(fmt.Sprintf("%s: expected error %s, but the %s was applied", label, expectCode, op))
	}
	return true, nil
}
