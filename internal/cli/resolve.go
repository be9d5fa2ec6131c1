package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bapdd/internal/config"
	"github.com/roach88/bapdd/internal/engine"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	ConfigPath string
	Granules   int
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <group>...",
		Short: "Elect the priest of a partitioned network",
		Long: `Resolve a partition into a single priest by static priority.

Each argument is one subgroup: a comma-separated list of granule ids. Every
subgroup elects its lowest-ranked member, then the lowest-ranked leader wins.
Ties go to the member listed first.

Ranks come from the priority map of --config, or default to id+1 for
--granules granules.

Examples:
  bapdd resolve 0,1 2,3
  bapdd resolve --granules 6 5,4 3 2,1,0
  bapdd resolve --config ./bapdd.cue 0,1 2,3 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to CUE config file")
	cmd.Flags().IntVar(&opts.Granules, "granules", engine.DefaultGranules, "granule count when no config is given")

	return cmd
}

func runResolve(opts *ResolveOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	subgroups, err := parseSubgroups(args)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidGroups, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid subgroups", err)
	}

	cfg := engine.DefaultConfig(opts.Granules)
	if opts.ConfigPath != "" {
		file, err := config.Load(opts.ConfigPath)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		if cfg, err = file.EngineConfig(); err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}

	eng, err := engine.New(cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	leaders, err := eng.GroupLeaders(subgroups)
	if err != nil {
		return reportInputError(formatter, "partition rejected", err)
	}
	winner, err := eng.ResolvePartition(subgroups)
	if err != nil {
		return reportInputError(formatter, "partition rejected", err)
	}
	rank, _ := eng.Rank(winner)

	report := ElectionReport{
		Subgroups: subgroups,
		Leaders:   leaders,
		Winner:    winner,
		Rank:      rank,
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Subgroups: %v\n", report.Subgroups)
	fmt.Fprintf(w, "Group leaders: %v\n", report.Leaders)
	fmt.Fprintf(w, "Winning priest: granule %d (priority %d)\n", report.Winner, report.Rank)
	return nil
}

// parseSubgroups parses arguments like "0,1" "2,3" into [[0 1] [2 3]].
// An argument of "" yields an empty subgroup, which the engine rejects.
func parseSubgroups(args []string) ([][]int, error) {
	subgroups := make([][]int, len(args))
	for g, arg := range args {
		group := []int{}
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("subgroup %d: %q is not a granule id", g, field)
			}
			group = append(group, id)
		}
		subgroups[g] = group
	}
	return subgroups, nil
}
