// Package metrics exposes rocketboy activity as Prometheus metrics.
//
// Each Metrics value owns its own prometheus.Registry, so tests and embedded
// servers never collide on the global default registry.
//
// # Metrics
//
//   - rocketboy_requests_sent_total: sends by method and outcome (ok, error, skipped)
//   - rocketboy_request_duration_seconds: send latency by method
//   - rocketboy_script_runs_total: sandbox runs by phase (pre, post) and outcome (ok, error)
//   - rocketboy_scan_phase_transitions_total: scan phase entries by phase
//   - rocketboy_scans_active: scans currently running
//   - rocketboy_scan_polls_total: scanner status polls by kind (spider, ascan)
//   - rocketboy_api_requests_total: API requests by method and status
//   - rocketboy_uptime_seconds: seconds since the registry was created
//
// Go runtime and process collectors are registered as well.
//
// # Usage
//
//	m := metrics.New()
//	m.ObserveSend("GET", metrics.OutcomeOK, elapsed)
//	mux.Handle("GET /metrics", m.Handler())
//
// All recording methods accept a nil *Metrics and do nothing, so components
// can keep metrics optional.
package metrics
