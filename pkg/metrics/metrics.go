package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every rocketboy metric.
const Namespace = "rocketboy"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Script phase label values.
const (
	PhasePre  = "pre"
	PhasePost = "post"
)

// Poll kind label values.
const (
	PollSpider = "spider"
	PollActive = "ascan"
)

// Metrics holds the collectors recorded by the executor, the scan
// orchestrator and the API server.
type Metrics struct {
	registry *prometheus.Registry

	requestsSent    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	scriptRuns      *prometheus.CounterVec
	scanPhases      *prometheus.CounterVec
	scansActive     prometheus.Gauge
	scanPolls       *prometheus.CounterVec
	apiRequests     *prometheus.CounterVec
}

// New creates a Metrics value backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	start := time.Now()

	m := &Metrics{
		registry: reg,
		requestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_sent_total",
			Help:      "Total number of requests sent by the executor",
		}, []string{"method", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Round-trip time of sent requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		scriptRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "script_runs_total",
			Help:      "Total number of sandbox script runs",
		}, []string{"phase", "outcome"}),
		scanPhases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scan_phase_transitions_total",
			Help:      "Total number of scan phase transitions by target phase",
		}, []string{"phase"}),
		scansActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "scans_active",
			Help:      "Number of scans currently running",
		}),
		scanPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scan_polls_total",
			Help:      "Total number of scanner status polls",
		}, []string{"kind"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests served",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.requestsSent,
		m.requestDuration,
		m.scriptRuns,
		m.scanPhases,
		m.scansActive,
		m.scanPolls,
		m.apiRequests,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started serving metrics",
		}, func() float64 { return time.Since(start).Seconds() }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSend records one executor send.
func (m *Metrics) ObserveSend(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsSent.WithLabelValues(method, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}

// ObserveScript records one sandbox run.
func (m *Metrics) ObserveScript(phase string, failed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	m.scriptRuns.WithLabelValues(phase, outcome).Inc()
}

// ScanPhase records a scan entering phase.
func (m *Metrics) ScanPhase(phase string) {
	if m == nil {
		return
	}
	m.scanPhases.WithLabelValues(phase).Inc()
}

// ScanStarted increments the active scan gauge.
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.scansActive.Inc()
}

// ScanFinished decrements the active scan gauge.
func (m *Metrics) ScanFinished() {
	if m == nil {
		return
	}
	m.scansActive.Dec()
}

// ScanPoll records one status poll of the given kind.
func (m *Metrics) ScanPoll(kind string) {
	if m == nil {
		return
	}
	m.scanPolls.WithLabelValues(kind).Inc()
}

// ObserveAPI records one served API request.
func (m *Metrics) ObserveAPI(method string, status int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
