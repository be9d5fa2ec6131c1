package scenario

import (
	"strconv"
)

// Trace event types.
const (
	EventRound    = "round"
	EventElection = "election"
	EventRejected = "rejected"
)

// TraceEvent is one step of a scenario run. Rejected steps carry the error
// code instead of state.
type TraceEvent struct {
	Type      string   `json:"type"`
	Seq       int64    `json:"seq,omitempty"`
	Round     int64    `json:"round,omitempty"`
	Weights   []string `json:"weights,omitempty"`
	Consensus string   `json:"consensus,omitempty"`
	Leaders   []int    `json:"leaders,omitempty"`
	Winner    *int     `json:"winner,omitempty"`
	Op        string   `json:"op,omitempty"`
	Code      string   `json:"code,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every round and election in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceDecimals is the precision of floats in traces. Traces are compared
// byte for byte, so they carry fixed-precision decimals rather than full
// float64 bits.
const traceDecimals = 6

func formatTraceFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', traceDecimals, 64)
}

func formatTraceFloats(fs []float64) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = formatTraceFloat(f)
	}
	return out
}
