package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one engine test: a configuration, the rounds fed to a
// fresh engine, the partitions resolved afterwards and assertions on the
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config builds the engine. Omitted parameters take engine defaults.
	Config ConfigSpec `yaml:"config"`

	// Rounds are applied in order. Each step may repeat.
	Rounds []RoundStep `yaml:"rounds"`

	// Elections are resolved after all rounds.
	Elections []ElectionStep `yaml:"elections,omitempty"`

	// Assertions validate the final engine state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is the fixed run id recorded in the journal. Defaults to Name.
	RunID string `yaml:"run_id,omitempty"`
}

// ConfigSpec mirrors engine.Config with optional fields.
type ConfigSpec struct {
	Granules int         `yaml:"granules"`
	Alpha    *float64    `yaml:"alpha,omitempty"`
	Beta     *float64    `yaml:"beta,omitempty"`
	Priority map[int]int `yaml:"priority,omitempty"`
}

// RoundStep feeds one opinion vector to the engine.
type RoundStep struct {
	// Opinions has one entry per granule.
	Opinions []float64 `yaml:"opinions"`

	// Counters pins each granule's logical counter for this round. When
	// empty, every granule clock ticks once.
	Counters []int64 `yaml:"counters,omitempty"`

	// Repeat applies the step this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// ExpectError is the input error code the engine must reject this step
	// with, e.g. LENGTH_MISMATCH.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ElectionStep resolves one partition.
type ElectionStep struct {
	Subgroups    [][]int `yaml:"subgroups"`
	ExpectWinner *int    `yaml:"expect_winner,omitempty"`
	ExpectError  string  `yaml:"expect_error,omitempty"`
}

// Assertion validates final engine state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "weight_range": weight of Granule lies in [Min, Max]
	// - "weight_order": weights strictly decrease along Order
	// - "consensus_range": consensus of the last applied round lies in [Min, Max]
	// - "diagonal_zero": every drift[i][i] is exactly 0
	// - "drift_range": drift[Row][Col] lies in [Min, Max]
	// - "winner": resolving Subgroups on the final engine elects Winner
	Type string `yaml:"type"`

	Granule   *int     `yaml:"granule,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Order     []int    `yaml:"order,omitempty"`
	Row       *int     `yaml:"row,omitempty"`
	Col       *int     `yaml:"col,omitempty"`
	Subgroups [][]int  `yaml:"subgroups,omitempty"`
	Winner    *int     `yaml:"winner,omitempty"`
}

// Assertion type constants.
const (
	AssertWeightRange    = "weight_range"
	AssertWeightOrder    = "weight_order"
	AssertConsensusRange = "consensus_range"
	AssertDiagonalZero   = "diagonal_zero"
	AssertDriftRange     = "drift_range"
	AssertWinner         = "winner"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Engine-level rules (granule count, alpha range, opinion lengths) are left
// to the engine so scenarios can assert on its rejections.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Rounds) == 0 && len(s.Elections) == 0 {
		return fmt.Errorf("rounds or elections must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Rounds {
		if step.Opinions == nil {
			return fmt.Errorf("rounds[%d]: opinions is required", i)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("rounds[%d]: repeat must be non-negative", i)
		}
		if len(step.Counters) > 0 && len(step.Counters) != len(step.Opinions) {
			return fmt.Errorf("rounds[%d]: counters has %d entries, opinions has %d", i, len(step.Counters), len(step.Opinions))
		}
	}

	for i, step := range s.Elections {
		if step.ExpectWinner != nil && step.ExpectError != "" {
			return fmt.Errorf("elections[%d]: expect_winner and expect_error are exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needBounds := func() error {
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertWeightRange:
		if a.Granule == nil {
			return fmt.Errorf("assertions[%d]: granule is required for weight_range", index)
		}
		return needBounds()
	case AssertWeightOrder:
		if len(a.Order) < 2 {
			return fmt.Errorf("assertions[%d]: order needs at least two granules for weight_order", index)
		}
	case AssertConsensusRange:
		return needBounds()
	case AssertDiagonalZero:
	case AssertDriftRange:
		if a.Row == nil || a.Col == nil {
			return fmt.Errorf("assertions[%d]: row and col are required for drift_range", index)
		}
		return needBounds()
	case AssertWinner:
		if len(a.Subgroups) == 0 {
			return fmt.Errorf("assertions[%d]: subgroups is required for winner", index)
		}
		if a.Winner == nil {
			return fmt.Errorf("assertions[%d]: winner is required for winner", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
