package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	// a second registry accepts a second set
	assert.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) })
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveDecode(time.Second, nil)
	m.ObserveDecode(time.Second, errors.New("corrupt"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlbumsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeFailures))

	m.ObserveAnalysis(time.Millisecond, 4)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesRun))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SilencesDetected))

	m.ObserveExport(time.Second, 5, 3, errors.New("disk full"))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SegmentsPlanned))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TracksExported))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportFailures))

	m.ObserveInvalidInput()
	m.ObservePublished(3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidInputs))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TracksPublished))

	m.JobStarted()
	m.JobStarted()
	m.JobFinished("COMPLETED", true)
	m.JobFinished("CANCELLED", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFinished.WithLabelValues("COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFinished.WithLabelValues("CANCELLED")))

	m.ObserveHTTPRequest("GET", "/health", 200)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecode(time.Second, nil)
		m.ObserveAnalysis(time.Second, 1)
		m.ObserveInvalidInput()
		m.ObserveExport(time.Second, 1, 1, nil)
		m.ObservePublished(1)
		m.JobStarted()
		m.JobFinished("FAILED", true)
		m.ObserveHTTPRequest("GET", "/", 200)
	})
}
