// Package sim drives a BAP-DD engine round by round.
//
// A Simulator owns one engine plus what sits around it: per-granule logical
// clocks, journal sequence numbers, the audit journal and metrics. The
// simulator decides what goes in and records what came out.
//
//	eng, _ := engine.New(engine.DefaultConfig(4))
//	s, _ := sim.New(ctx, eng, sim.WithJournal(st))
//	round, _ := s.Step(ctx, []float64{70, 77, 70, 70})
//	election, _ := s.Elect(ctx, [][]int{{0, 1}, {2, 3}})
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/metrics"
	"github.com/roach88/bapdd/internal/store"
)

// ErrHalted is returned by every step after a round could not be journalled. The
// engine may already hold the unrecorded round, so the run cannot continue
// without leaving a gap that replay would report.
var ErrHalted = errors.New("simulator halted after journal failure")

// Simulator wraps one engine. Step, StepWithTimestamps and Elect are
// serialized so clock ticks, engine updates and journal writes stay in
// lockstep.
type Simulator struct {
	mu sync.Mutex

	eng      *engine.Engine
	clocks   []*hlc.Clock
	seq      *Clock
	physical func() int64

	journal *store.Store
	metrics metrics.Metrics
	ids     RunIDGenerator
	runID   string

	// halted holds the journal error that stopped the run, nil while running.
	halted error
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithJournal records the run, every round and every election in st.
func WithJournal(st *store.Store) Option {
	return func(s *Simulator) { s.journal = st }
}

// WithMetrics reports weights, consensus and counters to m.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithRunIDGenerator names the run. Defaults to UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Simulator) { s.ids = g }
}

// WithPhysicalClock sets the source of timestamp physical times. Defaults to
// wall-clock Unix seconds.
func WithPhysicalClock(now func() int64) Option {
	return func(s *Simulator) { s.physical = now }
}

// New wraps eng. When a journal is configured the run record is written
// immediately and seq numbering continues after the journal's highest seq.
func New(ctx context.Context, eng *engine.Engine, opts ...Option) (*Simulator, error) {
	s := &Simulator{
		eng:      eng,
		clocks:   hlc.NewClocks(eng.GranuleCount()),
		physical: func() int64 { return time.Now().Unix() },
		metrics:  metrics.NewNoop(),
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runID = s.ids.Generate()

	start := int64(0)
	if s.journal != nil {
		maxSeq, err := s.journal.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("new simulator: %w", err)
		}
		start = maxSeq
	}
	s.seq = NewClockAt(start)

	if s.journal != nil {
		run := ir.RunRecord{
			ID:            s.runID,
			Config:        eng.Config(),
			Seq:           s.seq.Next(),
			EngineVersion: ir.EngineVersion,
			SchemaVersion: ir.SchemaVersion,
		}
		if err := s.journal.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("new simulator: %w", err)
		}
		slog.Info("run started", "run_id", s.runID, "granules", eng.GranuleCount())
	}

	return s, nil
}

// RunID identifies this simulator's run in the journal.
func (s *Simulator) RunID() string { return s.runID }

// Engine returns the wrapped engine.
func (s *Simulator) Engine() *engine.Engine { return s.eng }

// Step ticks every granule clock once and applies one round of opinions.
// On rejected input the clocks are rolled back and nothing is recorded.
func (s *Simulator) Step(ctx context.Context, opinions []float64) (ir.RoundRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHalted(); err != nil {
		return ir.RoundRecord{}, err
	}

	prev := make([]int64, len(s.clocks))
	for i, c := range s.clocks {
		prev[i] = c.Now(0).LogicalCounter
	}

	timestamps := hlc.TickAll(s.clocks, s.physical())
	round, err := s.apply(ctx, opinions, timestamps)
	if err != nil && engine.IsInputError(err) {
		for i, c := range s.clocks {
			c.Set(prev[i])
		}
	}
	return round, err
}

// StepWithTimestamps applies one round with caller-supplied timestamps. The
// granule clocks are advanced past the supplied counters.
func (s *Simulator) StepWithTimestamps(ctx context.Context, opinions []float64, timestamps []hlc.Timestamp) (ir.RoundRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHalted(); err != nil {
		return ir.RoundRecord{}, err
	}

	round, err := s.apply(ctx, opinions, timestamps)
	if err != nil {
		return round, err
	}
	physical := s.physical()
	for i, c := range s.clocks {
		c.Receive(timestamps[i], physical)
	}
	return round, nil
}

// Run steps the same opinions for the given number of rounds, calling
// onRound after each. It stops early when ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, opinions []float64, rounds int, onRound func(ir.RoundRecord)) (ir.RoundRecord, error) {
	var last ir.RoundRecord
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		round, err := s.Step(ctx, opinions)
		if err != nil {
			return last, err
		}
		last = round
		if onRound != nil {
			onRound(round)
		}
	}
	return last, nil
}

// apply runs UpdateDrift and consensus, then records the round.
// Caller must hold s.mu.
func (s *Simulator) apply(ctx context.Context, opinions []float64, timestamps []hlc.Timestamp) (ir.RoundRecord, error) {
	if err := s.eng.UpdateDrift(opinions, timestamps); err != nil {
		s.rejected("update drift", err)
		return ir.RoundRecord{}, err
	}

	// Opinions were validated by UpdateDrift, so consensus cannot fail here.
	consensus, err := s.eng.ConsensusOpinion(opinions)
	if err != nil {
		return ir.RoundRecord{}, fmt.Errorf("consensus: %w", err)
	}

	snap := s.eng.Snapshot()
	round := ir.RoundRecord{
		RunID:      s.runID,
		Seq:        s.seq.Next(),
		Round:      snap.Round,
		Opinions:   append([]float64(nil), opinions...),
		Timestamps: append([]hlc.Timestamp(nil), timestamps...),
		Weights:    snap.Weights,
		Drift:      snap.Drift,
		Consensus:  consensus,
	}
	hash, err := ir.RoundHash(round)
	if err != nil {
		// The engine already advanced, so the round can never be journalled.
		return ir.RoundRecord{}, s.halt(fmt.Errorf("hash round %d: %w", round.Round, err))
	}
	round.Hash = hash

	s.metrics.IncRounds()
	s.metrics.SetWeights(round.Weights)
	s.metrics.SetConsensus(consensus)

	if s.journal != nil {
		if err := s.journal.WriteRound(ctx, round); err != nil {
			return round, s.halt(fmt.Errorf("record round %d: %w", round.Round, err))
		}
	}
	return round, nil
}

// Elect resolves a partition and records the election.
func (s *Simulator) Elect(ctx context.Context, subgroups [][]int) (ir.ElectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHalted(); err != nil {
		return ir.ElectionRecord{}, err
	}

	leaders, err := s.eng.GroupLeaders(subgroups)
	if err != nil {
		s.rejected("resolve partition", err)
		return ir.ElectionRecord{}, err
	}
	winner, err := s.eng.ResolvePartition(subgroups)
	if err != nil {
		s.rejected("resolve partition", err)
		return ir.ElectionRecord{}, err
	}

	groups := make([][]int, len(subgroups))
	for i, g := range subgroups {
		groups[i] = append([]int(nil), g...)
	}
	election := ir.ElectionRecord{
		RunID:     s.runID,
		Seq:       s.seq.Next(),
		Subgroups: groups,
		Leaders:   leaders,
		Winner:    winner,
	}
	hash, err := ir.ElectionHash(election)
	if err != nil {
		return ir.ElectionRecord{}, err
	}
	election.Hash = hash

	s.metrics.IncElections()
	slog.Debug("partition resolved", "subgroups", len(subgroups), "winner", winner)

	if s.journal != nil {
		if err := s.journal.WriteElection(ctx, election); err != nil {
			return election, s.halt(fmt.Errorf("record election: %w", err))
		}
	}
	return election, nil
}

// Halted returns the journal error that stopped the run, or nil.
func (s *Simulator) Halted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// halt stops the run. Caller must hold s.mu.
func (s *Simulator) halt(err error) error {
	s.halted = err
	slog.Error("simulator halted", "run_id", s.runID, "error", err)
	return err
}

// checkHalted returns ErrHalted wrapping the original failure. Caller must
// hold s.mu.
func (s *Simulator) checkHalted() error {
	if s.halted == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrHalted, s.halted)
}

func (s *Simulator) rejected(op string, err error) {
	code := engine.CodeOf(err)
	s.metrics.IncInvalidInput(string(code))
	slog.Warn("input rejected", "op", op, "code", code, "error", err)
}
