package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testassist_generations_total",
			Help: "Artifact generation requests by classified test type and outcome",
		},
		[]string{"test_type", "outcome"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testassist_runs_total",
			Help: "Runner executions by test type and outcome",
		},
		[]string{"test_type", "outcome"},
	)

	scenariosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testassist_scenarios_total",
			Help: "Scenarios parsed from runner result files",
		},
		[]string{"status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testassist_run_duration_seconds",
			Help:    "Wall-clock duration of runner executions",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"test_type"},
	)

	agentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testassist_agent_requests_total",
			Help: "Requests sent to the generative backend",
		},
		[]string{"provider"},
	)

	agentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testassist_agent_latency_seconds",
			Help:    "Latency of generative backend calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		generationsTotal,
		runsTotal,
		scenariosTotal,
		runDuration,
		agentRequests,
		agentLatency,
	)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// TrackGeneration records a generation attempt. testType is empty when the
// response never classified.
func TrackGeneration(testType string, ok bool) {
	if testType == "" {
		testType = "unclassified"
	}
	generationsTotal.WithLabelValues(testType, outcome(ok)).Inc()
}

// TrackRun records a finished runner execution.
func TrackRun(testType string, ok bool, seconds float64) {
	runsTotal.WithLabelValues(testType, outcome(ok)).Inc()
	runDuration.WithLabelValues(testType).Observe(seconds)
}

// TrackScenarios adds parsed scenario counts.
func TrackScenarios(passed, failed uint) {
	scenariosTotal.WithLabelValues("passed").Add(float64(passed))
	scenariosTotal.WithLabelValues("failed").Add(float64(failed))
}

// TrackAgentRequest counts a backend call.
func TrackAgentRequest(provider string) {
	agentRequests.WithLabelValues(provider).Inc()
}

// ObserveAgentLatency records how long a backend call took.
func ObserveAgentLatency(provider string, seconds float64) {
	agentLatency.WithLabelValues(provider).Observe(seconds)
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts a HTTP server exposing Prometheus metrics.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())

	LogInfo("Starting metrics server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
