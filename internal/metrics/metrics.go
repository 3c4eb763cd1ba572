// Package metrics exposes Prometheus counters for the NLU engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's counters. All methods are safe for
// concurrent use.
type Metrics struct {
	queries       *prometheus.CounterVec
	lowConfidence prometheus.Counter
	dialogues     *prometheus.CounterVec
	storageErrors prometheus.Counter
}

// New registers the engine counters on reg. Passing nil registers on
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "packrat",
			Name:      "queries_total",
			Help:      "Processed queries by classified intent.",
		}, []string{"intent"}),
		lowConfidence: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "packrat",
			Name:      "low_confidence_total",
			Help:      "Queries that fell below the confidence floor.",
		}),
		dialogues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "packrat",
			Name:      "dialogues_total",
			Help:      "Acquisition dialogues by outcome.",
		}, []string{"outcome"}),
		storageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "packrat",
			Name:      "storage_errors_total",
			Help:      "Storage operations that failed.",
		}),
	}
}

// Query counts one processed query for the given intent.
func (m *Metrics) Query(intent string) {
	m.queries.WithLabelValues(intent).Inc()
}

// LowConfidence counts one classification below the confidence floor.
func (m *Metrics) LowConfidence() {
	m.lowConfidence.Inc()
}

// Dialogue counts one finished dialogue: completed, cancelled or expired.
func (m *Metrics) Dialogue(outcome string) {
	m.dialogues.WithLabelValues(outcome).Inc()
}

// StorageError counts one failed storage operation.
func (m *Metrics) StorageError() {
	m.storageErrors.Inc()
}
