// Package metrics defines the Prometheus metrics exported by albumsplit.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for album splitting.
// Methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Album metrics
	AlbumsLoaded   prometheus.Counter
	DecodeFailures prometheus.Counter
	DecodeDuration prometheus.Histogram

	// Analysis metrics
	AnalysesRun      prometheus.Counter
	SilencesDetected prometheus.Counter
	AnalysisDuration prometheus.Histogram

	// Split metrics
	SegmentsPlanned prometheus.Counter
	InvalidInputs   prometheus.Counter
	TracksExported  prometheus.Counter
	ExportFailures  prometheus.Counter
	ExportDuration  prometheus.Histogram
	TracksPublished prometheus.Counter

	// Job metrics
	JobsRunning  prometheus.Gauge
	JobsFinished *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AlbumsLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_albums_loaded_total",
			Help: "Total number of source recordings decoded",
		}),
		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_decode_failures_total",
			Help: "Total number of source recordings that failed to decode",
		}),
		DecodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "albumsplit_decode_duration_seconds",
			Help:    "Time spent decoding source recordings",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		AnalysesRun: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_analyses_total",
			Help: "Total number of silence analyses run",
		}),
		SilencesDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_silences_detected_total",
			Help: "Total number of silence intervals detected",
		}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "albumsplit_analysis_duration_seconds",
			Help:    "Time spent detecting silence",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		SegmentsPlanned: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_segments_planned_total",
			Help: "Total number of segments planned for export",
		}),
		InvalidInputs: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_invalid_inputs_total",
			Help: "Total number of split requests rejected as invalid input",
		}),
		TracksExported: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_tracks_exported_total",
			Help: "Total number of track files written",
		}),
		ExportFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_export_failures_total",
			Help: "Total number of split operations aborted by an export failure",
		}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "albumsplit_export_duration_seconds",
			Help:    "Time spent exporting all tracks of one split",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		TracksPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "albumsplit_tracks_published_total",
			Help: "Total number of track files uploaded to a publisher",
		}),

		JobsRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "albumsplit_jobs_running",
			Help: "Number of split jobs currently running",
		}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "albumsplit_jobs_finished_total",
			Help: "Total number of split jobs by terminal status",
		}, []string{"status"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "albumsplit_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// ObserveDecode records one decode attempt.
func (m *Metrics) ObserveDecode(d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.DecodeFailures.Inc()
		return
	}
	m.AlbumsLoaded.Inc()
	m.DecodeDuration.Observe(d.Seconds())
}

// ObserveAnalysis records one silence analysis.
func (m *Metrics) ObserveAnalysis(d time.Duration, intervals int) {
	if m == nil {
		return
	}
	m.AnalysesRun.Inc()
	m.SilencesDetected.Add(float64(intervals))
	m.AnalysisDuration.Observe(d.Seconds())
}

// ObserveInvalidInput records a rejected split request.
func (m *Metrics) ObserveInvalidInput() {
	if m == nil {
		return
	}
	m.InvalidInputs.Inc()
}

// ObserveExport records the outcome of exporting one plan.
func (m *Metrics) ObserveExport(d time.Duration, planned, written int, err error) {
	if m == nil {
		return
	}
	m.SegmentsPlanned.Add(float64(planned))
	m.TracksExported.Add(float64(written))
	if err != nil {
		m.ExportFailures.Inc()
	}
	m.ExportDuration.Observe(d.Seconds())
}

// ObservePublished records uploaded tracks.
func (m *Metrics) ObservePublished(n int) {
	if m == nil {
		return
	}
	m.TracksPublished.Add(float64(n))
}

// JobStarted records a job entering RUNNING.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.JobsRunning.Inc()
}

// JobFinished records a job reaching a terminal status. started reports
// whether the job had been counted by JobStarted.
func (m *Metrics) JobFinished(status string, started bool) {
	if m == nil {
		return
	}
	if started {
		m.JobsRunning.Dec()
	}
	m.JobsFinished.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
