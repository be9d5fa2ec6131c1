// Package metrics exposes engine state as Prometheus collectors.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace    = "bapdd"
	GranuleLabel = "granule"
	CodeLabel    = "code"
)

var _ Metrics = (*metricsImpl)(nil)

type Metrics interface {
	// Record the weight vector after a round.
	SetWeights(weights []float64)
	// Record the consensus opinion of the latest round.
	SetConsensus(opinion float64)
	// Mark that a round was applied.
	IncRounds()
	// Mark that a partition was resolved.
	IncElections()
	// Mark that an input was rejected with the given error code.
	IncInvalidInput(code string)
}

func New(registerer prometheus.Registerer) (Metrics, error) {
	m := &metricsImpl{
		weight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "granule_weight",
				Help:      "Current influence weight of each granule",
			},
			[]string{GranuleLabel},
		),
		consensus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consensus_opinion",
			Help:      "Weighted consensus opinion of the latest round",
		}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of drift rounds applied",
		}),
		elections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elections_total",
			Help:      "Total number of partitions resolved",
		}),
		invalid: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalid_input_total",
				Help:      "Total number of rejected inputs by error code",
			},
			[]string{CodeLabel},
		),
	}

	err := errors.Join(
		registerer.Register(m.weight),
		registerer.Register(m.consensus),
		registerer.Register(m.rounds),
		registerer.Register(m.elections),
		registerer.Register(m.invalid),
	)
	return m, err
}

type metricsImpl struct {
	weight    *prometheus.GaugeVec
	consensus prometheus.Gauge
	rounds    prometheus.Counter
	elections prometheus.Counter
	invalid   *prometheus.CounterVec
}

func (m *metricsImpl) SetWeights(weights []float64) {
	for i, w := range weights {
		m.weight.WithLabelValues(strconv.Itoa(i)).Set(w)
	}
}

func (m *metricsImpl) SetConsensus(opinion float64) {
	m.consensus.Set(opinion)
}

func (m *metricsImpl) IncRounds() {
	m.rounds.Inc()
}

func (m *metricsImpl) IncElections() {
	m.elections.Inc()
}

func (m *metricsImpl) IncInvalidInput(code string) {
	m.invalid.WithLabelValues(code).Inc()
}

// NewNoop returns a Metrics that discards everything.
func NewNoop() Metrics {
	return noop{}
}

type noop struct{}

func (noop) SetWeights([]float64)   {}
func (noop) SetConsensus(float64)   {}
func (noop) IncRounds()             {}
func (noop) IncElections()          {}
func (noop) IncInvalidInput(string) {}
