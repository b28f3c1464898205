package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunFinished("ok", 3)
	m.RunFinished("rejected", 0)
	m.MatchesFound("identifier", 2)
	m.SnapshotFetched(true, 42)
	m.SnapshotFetched(false, 0)
	m.FuzzyObserved(1500 * time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("rejected")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.candidates))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.matches.WithLabelValues("identifier")))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.snapshotRecords))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.snapshotFetches.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fuzzyDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("ok", 1)
		m.MatchesFound("title_exact", 1)
		m.SnapshotFetched(true, 1)
		m.FuzzyObserved(time.Second)
	})
}
