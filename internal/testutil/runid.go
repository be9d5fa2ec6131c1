package testutil

// FixedRunIDGenerator generates the same run id every time.
//
// Unlike sim.FixedGenerator, which hands out a list of ids in order, this
// generator never runs out, so one scenario can build any number of
// simulators and every trace carries the same id.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements sim.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
