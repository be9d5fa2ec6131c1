// Package config loads CUE driver configuration files.
//
// A file is unified with the embedded #Config schema, so unknown fields,
// out-of-range parameters and type mismatches are reported with CUE
// positions. Omitted parameters take the schema defaults (4 granules,
// alpha 0.95, beta 10).
//
//	granules: 4
//	alpha:    0.95
//	beta:     10
//	priority: {"0": 1, "1": 2, "2": 3, "3": 4}
//	rounds:       50
//	report_every: 10
//	opinions:  [70, 77, 70, 70]
//	partition: [[0, 1], [2, 3]]
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bapdd/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// File is a decoded configuration file.
type File struct {
	Granules    int            `json:"granules"`
	Alpha       float64        `json:"alpha"`
	Beta        float64        `json:"beta"`
	Priority    map[string]int `json:"priority,omitempty"`
	Rounds      int            `json:"rounds,omitempty"`
	ReportEvery int            `json:"report_every,omitempty"`
	Opinions    []float64      `json:"opinions,omitempty"`
	Partition   [][]int        `json:"partition,omitempty"`
}

// LoadError is a configuration error with its CUE position when known.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates the CUE file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return load(path, data)
}

// LoadString validates CUE source held in memory.
func LoadString(src string) (*File, error) {
	return load("config.cue", []byte(src))
}

func load(filename string, src []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}

	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// check covers the cross-field rules the schema cannot express.
func (f *File) check() error {
	if len(f.Opinions) > 0 && len(f.Opinions) != f.Granules {
		return &LoadError{
			Field:   "opinions",
			Message: fmt.Sprintf("has %d entries, granules is %d", len(f.Opinions), f.Granules),
		}
	}
	for g, group := range f.Partition {
		for _, id := range group {
			if id >= f.Granules {
				return &LoadError{
					Field:   fmt.Sprintf("partition[%d]", g),
					Message: fmt.Sprintf("granule %d outside 0..%d", id, f.Granules-1),
				}
			}
		}
	}
	_, err := f.EngineConfig()
	return err
}

// EngineConfig converts the file into a validated engine configuration.
func (f *File) EngineConfig() (engine.Config, error) {
	cfg := engine.Config{
		GranuleCount: f.Granules,
		Alpha:        f.Alpha,
		Beta:         f.Beta,
	}

	if len(f.Priority) == 0 {
		cfg.Priority = engine.DefaultPriority(f.Granules)
	} else {
		cfg.Priority = make(engine.PriorityMap, len(f.Priority))
		for key, rank := range f.Priority {
			id, err := strconv.Atoi(key)
			if err != nil {
				return engine.Config{}, &LoadError{
					Field:   "priority",
					Message: fmt.Sprintf("key %q is not a granule id", key),
				}
			}
			cfg.Priority[id] = rank
		}
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
