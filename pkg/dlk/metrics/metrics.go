// Package metrics exposes Prometheus instrumentation for reasoning work.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dlk"

// Metrics holds the kernel collectors.
type Metrics struct {
	queries     *prometheus.CounterVec
	axioms      *prometheus.CounterVec
	syncs       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	tests       prometheus.Counter
	cacheHits   prometheus.Counter
	state       prometheus.Gauge
	liveAxioms  prometheus.Gauge
	durations   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries answered, by operation and outcome.",
		}, []string{"op", "outcome"}),
		axioms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "axioms_total",
			Help:      "Axiom tells and retracts, by action and outcome.",
		}, []string{"action", "outcome"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Engine synchronizations, by mode (load or apply).",
		}, []string{"mode"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "transitions_total",
			Help:      "Synchronization state changes, by target state.",
		}, []string{"to"}),
		tests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tableau",
			Name:      "tests_total",
			Help:      "Satisfiability tests run by the tableau engine.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tableau",
			Name:      "cache_hits_total",
			Help:      "Satisfiability tests answered from the result cache.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "state",
			Help:      "Current synchronization state as its numeric code.",
		}),
		liveAxioms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_axioms",
			Help:      "Number of live axioms in the store.",
		}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of classification, realization and synchronization.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{
		m.queries, m.axioms, m.syncs, m.transitions,
		m.tests, m.cacheHits, m.state, m.liveAxioms, m.durations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Query counts one answered query.
func (m *Metrics) Query(op string, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(op, outcome(err)).Inc()
}

// Axiom counts one tell or retract and updates the live axiom gauge.
func (m *Metrics) Axiom(action string, err error, live int) {
	if m == nil {
		return
	}
	m.axioms.WithLabelValues(action, outcome(err)).Inc()
	m.liveAxioms.Set(float64(live))
}

// Sync counts one engine synchronization.
func (m *Metrics) Sync(mode string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(mode).Inc()
}

// Transition records a state change. code is the numeric state.
func (m *Metrics) Transition(to string, code int) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
	m.state.Set(float64(code))
}

// Tableau adds engine counters accumulated since the last call.
func (m *Metrics) Tableau(tests, cacheHits uint64) {
	if m == nil {
		return
	}
	m.tests.Add(float64(tests))
	m.cacheHits.Add(float64(cacheHits))
}

// Observe records the duration of op started at start.
func (m *Metrics) Observe(op string, start time.Time) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
