package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bapdd/internal/sim"
	"github.com/roach88/bapdd/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []sim.ReplayReport `json:"runs"`
	TotalRuns        int                `json:"total_runs"`
	AllDeterministic bool               `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay journaled runs into fresh engines and verify determinism.

Each run's recorded opinions and timestamps are fed to a new engine built from
the recorded configuration. Every recomputed round and election hash must
equal the recorded one. The journal is only read.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  bapdd replay --db ./bapdd.db
  bapdd replay --db ./bapdd.db --run 0190b6f2-...
  bapdd replay --db ./bapdd.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
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

	var reports []sim.ReplayReport
	if opts.RunID != "" {
		report, err := sim.Replay(ctx, st, opts.RunID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("run not found: %s", opts.RunID), nil)
				return WrapExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID), err)
			}
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", opts.RunID), err)
		}
		reports = []sim.ReplayReport{report}
	} else {
		reports, err = sim.ReplayAll(ctx, st)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to replay journal", err)
		}
	}

	result := ReplayResult{
		Runs:             reports,
		TotalRuns:        len(reports),
		AllDeterministic: true,
	}
	for _, r := range reports {
		if !r.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter.Writer, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	if result.AllDeterministic {
		return formatter.Success(result)
	}

	if err := formatter.Failure(result, ErrCodeDeterminism, "determinism verification failed"); err != nil {
		return err
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Events: %d rounds, %d elections\n", run.Rounds, run.Elections)

		for _, m := range run.Mismatches {
			if verbose {
				fmt.Fprintf(w, "  seq %d %s: recorded %s, replayed %s\n", m.Seq, m.Kind, m.Recorded, m.Replayed)
			} else {
				fmt.Fprintf(w, "  seq %d %s: hash mismatch\n", m.Seq, m.Kind)
			}
		}
		if !run.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
