// Package metrics exposes Prometheus collectors for reconciliation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retraction_check"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	runs            *prometheus.CounterVec
	candidates      prometheus.Counter
	matches         *prometheus.CounterVec
	snapshotFetches *prometheus.CounterVec
	snapshotRecords prometheus.Gauge
	fuzzyDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_records_total",
			Help:      "Uploaded reference records processed.",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Match records produced, by strategy.",
		}, []string{"strategy"}),
		snapshotFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fetches_total",
			Help:      "Reference dataset downloads by outcome.",
		}, []string{"outcome"}),
		snapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records in the active reference dataset snapshot.",
		}),
		fuzzyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fuzzy_match_duration_seconds",
			Help:      "Wall time of fuzzy title matching.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
	reg.MustRegister(m.runs, m.candidates, m.matches, m.snapshotFetches, m.snapshotRecords, m.fuzzyDuration)
	return m
}

// RunFinished counts a run; outcome is "ok", "rejected" or "failed".
func (m *Metrics) RunFinished(outcome string, candidates int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.candidates.Add(float64(candidates))
}

// MatchesFound adds n matches for strategy.
func (m *Metrics) MatchesFound(strategy string, n int) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(strategy).Add(float64(n))
}

// SnapshotFetched records a download attempt.
func (m *Metrics) SnapshotFetched(ok bool, records int) {
	if m == nil {
		return
	}
	if !ok {
		m.snapshotFetches.WithLabelValues("failed").Inc()
		return
	}
	m.snapshotFetches.WithLabelValues("ok").Inc()
	m.snapshotRecords.Set(float64(records))
}

// FuzzyObserved records the duration of one fuzzy matching pass.
func (m *Metrics) FuzzyObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.fuzzyDuration.Observe(d.Seconds())
}
