package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSend(t *testing.T) {
	m := New()
	m.ObserveSend("GET", OutcomeOK, 120*time.Millisecond)
	m.ObserveSend("GET", OutcomeOK, 80*time.Millisecond)
	m.ObserveSend("POST", OutcomeError, time.Second)
	m.ObserveSend("GET", OutcomeSkipped, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsSent.WithLabelValues("GET", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsSent.WithLabelValues("POST", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsSent.WithLabelValues("GET", OutcomeSkipped)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestScanMetrics(t *testing.T) {
	m := New()
	m.ScanStarted()
	m.ScanStarted()
	m.ScanFinished()
	m.ScanPhase("SpiderRunning")
	m.ScanPoll(PollSpider)
	m.ScanPoll(PollSpider)
	m.ScanPoll(PollActive)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scansActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scanPhases.WithLabelValues("SpiderRunning")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scanPolls.WithLabelValues(PollSpider)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scanPolls.WithLabelValues(PollActive)))
}

func TestObserveScript(t *testing.T) {
	m := New()
	m.ObserveScript(PhasePre, false)
	m.ObserveScript(PhasePost, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scriptRuns.WithLabelValues(PhasePre, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scriptRuns.WithLabelValues(PhasePost, OutcomeError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSend("GET", OutcomeOK, time.Second)
		m.ObserveScript(PhasePre, true)
		m.ScanPhase("Completed")
		m.ScanStarted()
		m.ScanFinished()
		m.ScanPoll(PollSpider)
		m.ObserveAPI("GET", 200)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rocketboy_api_requests_total{method="GET",status="200"} 1`))
	assert.Contains(t, body, "rocketboy_uptime_seconds")
	assert.Contains(t, body, "go_goroutines")
}
