package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/bapdd/internal/config"
	"github.com/roach88/bapdd/internal/engine"
	"github.com/roach88/bapdd/internal/ir"
	"github.com/roach88/bapdd/internal/metrics"
	"github.com/roach88/bapdd/internal/sim"
	"github.com/roach88/bapdd/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	ConfigPath string
	Rounds     int
	Every      int
	Database   string
	Metrics    bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to sim.UUIDv7Generator.
	RunIDs sim.RunIDGenerator

	// PhysicalClock overrides the timestamp clock (for testing).
	PhysicalClock func() int64
}

// RoundReport is one periodic weight report.
type RoundReport struct {
	Round     int64     `json:"round"`
	Weights   []float64 `json:"weights"`
	Consensus float64   `json:"consensus"`
}

// ElectionReport is the partition resolution after the rounds.
type ElectionReport struct {
	Subgroups [][]int `json:"subgroups"`
	Leaders   []int   `json:"leaders"`
	Winner    int     `json:"winner"`
	Rank      int     `json:"rank"`
}

// SimulateResult is the outcome of a simulation run.
type SimulateResult struct {
	RunID     string          `json:"run_id"`
	Config    engine.Config   `json:"config"`
	Rounds    int64           `json:"rounds"`
	Reports   []RoundReport   `json:"reports"`
	Weights   []float64       `json:"weights"`
	Consensus float64         `json:"consensus"`
	Election  *ElectionReport `json:"election,omitempty"`
}

// simulationPlan is what a simulation will do once flags and config merge.
type simulationPlan struct {
	config    engine.Config
	opinions  []float64
	partition [][]int
	rounds    int
	every     int
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the drift detection demonstration",
		Long: `Feed the same opinions to every granule for a number of rounds, reporting
weights periodically, then resolve a partition.

Without --config the demonstration run is used: four granules, granule 1
reporting 77 while its peers report 70, fifty rounds, and the partition
[[0,1],[2,3]]. A CUE config file may override any of these.

With --db every round and election is recorded in a SQLite journal that
"bapdd replay" can verify later.

Examples:
  bapdd simulate
  bapdd simulate --rounds 100 --every 25
  bapdd simulate --config ./bapdd.cue --db ./bapdd.db
  bapdd simulate --format json --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to CUE config file")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 0, "number of rounds (overrides config)")
	cmd.Flags().IntVar(&opts.Every, "every", 0, "report weights every N rounds (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "write Prometheus metrics to stderr after the run")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	plan, err := buildPlan(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	eng, err := engine.New(plan.config)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var simOpts []sim.Option
	if opts.RunIDs != nil {
		simOpts = append(simOpts, sim.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.PhysicalClock != nil {
		simOpts = append(simOpts, sim.WithPhysicalClock(opts.PhysicalClock))
	}

	if opts.Database != "" {
		slog.Debug("opening journal", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, sim.WithJournal(st))
	}

	var registry *prometheus.Registry
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		m, err := metrics.New(registry)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		simOpts = append(simOpts, sim.WithMetrics(m))
	}

	s, err := sim.New(ctx, eng, simOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start simulation", err)
	}

	result := SimulateResult{
		RunID:   s.RunID(),
		Config:  eng.Config(),
		Reports: []RoundReport{},
	}

	last, err := s.Run(ctx, plan.opinions, plan.rounds, func(rec ir.RoundRecord) {
		if (rec.Round-1)%int64(plan.every) == 0 {
			result.Reports = append(result.Reports, RoundReport{
				Round:     rec.Round,
				Weights:   rec.Weights,
				Consensus: rec.Consensus,
			})
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "simulation interrupted", err)
		}
		if engine.IsInputError(err) {
			return reportInputError(formatter, "round rejected", err)
		}
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "simulation failed", err)
	}
	result.Rounds = last.Round
	result.Weights = eng.Weights()
	result.Consensus = last.Consensus

	if len(plan.partition) > 0 {
		election, err := s.Elect(ctx, plan.partition)
		if err != nil {
			if engine.IsInputError(err) {
				return reportInputError(formatter, "partition rejected", err)
			}
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "election failed", err)
		}
		rank, _ := eng.Rank(election.Winner)
		result.Election = &ElectionReport{
			Subgroups: election.Subgroups,
			Leaders:   election.Leaders,
			Winner:    election.Winner,
			Rank:      rank,
		}
	}

	if registry != nil {
		if err := writeMetrics(cmd.ErrOrStderr(), registry); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputSimulateText(formatter.Writer, result)
	return nil
}

// buildPlan merges the demo defaults, the config file and flag overrides.
func buildPlan(opts *SimulateOptions) (simulationPlan, error) {
	plan := simulationPlan{
		config:    engine.DefaultConfig(sim.DemoGranules),
		opinions:  sim.DemoOpinions(),
		partition: sim.DemoPartition(),
		rounds:    sim.DemoRounds,
		every:     sim.DemoReportEvery,
	}

	if opts.ConfigPath != "" {
		file, err := config.Load(opts.ConfigPath)
		if err != nil {
			return plan, err
		}
		cfg, err := file.EngineConfig()
		if err != nil {
			return plan, err
		}
		plan.config = cfg

		if len(file.Opinions) > 0 {
			plan.opinions = file.Opinions
		} else if cfg.GranuleCount != sim.DemoGranules {
			return plan, fmt.Errorf("opinions are required when granules is not %d", sim.DemoGranules)
		}

		if len(file.Partition) > 0 {
			plan.partition = file.Partition
		} else if cfg.GranuleCount != sim.DemoGranules {
			plan.partition = nil
		}

		if file.Rounds > 0 {
			plan.rounds = file.Rounds
		}
		if file.ReportEvery > 0 {
			plan.every = file.ReportEvery
		}
	}

	if opts.Rounds < 0 {
		return plan, fmt.Errorf("--rounds must be non-negative, got %d", opts.Rounds)
	}
	if opts.Rounds > 0 {
		plan.rounds = opts.Rounds
	}
	if opts.Every < 0 {
		return plan, fmt.Errorf("--every must be non-negative, got %d", opts.Every)
	}
	if opts.Every > 0 {
		plan.every = opts.Every
	}
	return plan, nil
}

// writeMetrics writes every gathered family in the Prometheus text format.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func outputSimulateText(w io.Writer, result SimulateResult) {
	fmt.Fprintln(w, "--- Drift detection ---")
	for _, r := range result.Reports {
		fmt.Fprintf(w, "Round %d: Weights = %s\n", r.Round, formatWeights(r.Weights))
	}
	fmt.Fprintf(w, "Final weights after %d rounds: %s\n", result.Rounds, formatWeights(result.Weights))
	fmt.Fprintf(w, "Consensus opinion: %.3f\n", result.Consensus)

	if result.Election != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "--- Partition resolution ---")
		fmt.Fprintf(w, "Subgroups: %v\n", result.Election.Subgroups)
		fmt.Fprintf(w, "Group leaders: %v\n", result.Election.Leaders)
		fmt.Fprintf(w, "Winning priest: granule %d (priority %d)\n", result.Election.Winner, result.Election.Rank)
	}
}

// formatWeights renders weights to three decimals.
func formatWeights(weights []float64) string {
	parts := make([]string, len(weights))
	for i, w := range weights {
		parts[i] = fmt.Sprintf("%.3f", w)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
