package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/hlc"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/store"
)

// Timeline event kinds.
const (
	kindRound    = "round"
	kindElection = "election"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - "round" or "election"
}

// TraceEvent represents a single journaled event in the timeline.
type TraceEvent struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"` // "round" or "election"
	Hash       string          `json:"hash"`
	Round      int64           `json:"round,omitempty"`
	Opinions   []float64       `json:"opinions,omitempty"`
	Timestamps []hlc.Timestamp `json:"timestamps,omitempty"`
	Weights    []float64       `json:"weights,omitempty"`
	Consensus  *float64        `json:"consensus,omitempty"`
	Subgroups  [][]int         `json:"subgroups,omitempty"`
	Leaders    []int           `json:"leaders,omitempty"`
	Winner     *int            `json:"winner,omitempty"`
}

// RunSummary describes one journaled run.
type RunSummary struct {
	ID            string        `json:"id"`
	Seq           int64         `json:"seq"`
	Config        engine.Config `json:"config"`
	EngineVersion string        `json:"engine_version"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunSummary   `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents  int       `json:"total_events"`
	Rounds       int       `json:"rounds"`
	Elections    int       `json:"elections"`
	FinalWeights []float64 `json:"final_weights,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of a run",
		Long: `Show the journaled rounds and elections of a run in seq order.

Without --run, lists the runs in the journal.

The output includes:
- Timeline: rounds (weights, consensus) and elections (leaders, winner)
- Stats: event counts and the weights after the last round

Examples:
  bapdd trace --db ./bapdd.db
  bapdd trace --db ./bapdd.db --run 0190b6f2-...
  bapdd trace --db ./bapdd.db --run 0190b6f2-... --kind election
  bapdd trace --db ./bapdd.db --run 0190b6f2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to round or election events")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	if opts.Kind != "" && opts.Kind != kindRound && opts.Kind != kindElection {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("invalid kind %q: must be round or election", opts.Kind), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("run not found: %s", opts.RunID), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID), err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	rounds, err := st.ReadRounds(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read rounds", err)
	}
	elections, err := st.ReadElections(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read elections", err)
	}

	result := TraceResult{
		Run:      summarizeRun(run),
		Timeline: buildTimeline(rounds, elections, opts.Kind),
		Stats: TraceStats{
			Rounds:    len(rounds),
			Elections: len(elections),
		},
	}
	result.Stats.TotalEvents = len(result.Timeline)
	if len(rounds) > 0 {
		result.Stats.FinalWeights = rounds[len(rounds)-1].Weights
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

func summarizeRun(run ir.RunRecord) RunSummary {
	return RunSummary{
		ID:            run.ID,
		Seq:           run.Seq,
		Config:        run.Config,
		EngineVersion: run.EngineVersion,
	}
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = summarizeRun(run)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "Runs: %d\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  [%d] %s (%d granules, alpha %v, beta %v)\n",
			s.Seq, s.ID, s.Config.GranuleCount, s.Config.Alpha, s.Config.Beta)
	}
	return nil
}

// buildTimeline merges rounds and elections into one seq-ordered timeline.
// When kind is set, only events of that kind are included.
func buildTimeline(rounds []ir.RoundRecord, elections []ir.ElectionRecord, kind string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(rounds)+len(elections))

	if kind == "" || kind == kindRound {
		for _, r := range rounds {
			consensus := r.Consensus
			timeline = append(timeline, TraceEvent{
				Seq:        r.Seq,
				Type:       kindRound,
				Hash:       r.Hash,
				Round:      r.Round,
				Opinions:   r.Opinions,
				Timestamps: r.Timestamps,
				Weights:    r.Weights,
				Consensus:  &consensus,
			})
		}
	}

	if kind == "" || kind == kindElection {
		for _, e := range elections {
			winner := e.Winner
			timeline = append(timeline, TraceEvent{
				Seq:       e.Seq,
				Type:      kindElection,
				Hash:      e.Hash,
				Subgroups: e.Subgroups,
				Leaders:   e.Leaders,
				Winner:    &winner,
			})
		}
	}

	slices.SortFunc(timeline, func(a, b TraceEvent) int {
		return int(a.Seq - b.Seq)
	})
	return timeline
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Config: %d granules, alpha %v, beta %v\n",
		result.Run.Config.GranuleCount, result.Run.Config.Alpha, result.Run.Config.Beta)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Rounds:       %d\n", result.Stats.Rounds)
	fmt.Fprintf(w, "  Elections:    %d\n", result.Stats.Elections)
	if len(result.Stats.FinalWeights) > 0 {
		fmt.Fprintf(w, "  Final Weights: %s\n", formatWeights(result.Stats.FinalWeights))
	}
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Type {
	case kindRound:
		fmt.Fprintf(w, "  [%d] ROUND %d weights %s consensus %.3f\n",
			event.Seq, event.Round, formatWeights(event.Weights), *event.Consensus)
		if verbose {
			fmt.Fprintf(w, "       Opinions: %v\n", event.Opinions)
			fmt.Fprintf(w, "       Timestamps: %v\n", event.Timestamps)
			fmt.Fprintf(w, "       Hash: %s\n", truncateID(event.Hash))
		}

	case kindElection:
		fmt.Fprintf(w, "  [%d] ELECT %v leaders %v winner %d\n",
			event.Seq, event.Subgroups, event.Leaders, *event.Winner)
		if verbose {
			fmt.Fprintf(w, "       Hash: %s\n", truncateID(event.Hash))
		}
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
