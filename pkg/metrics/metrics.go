// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// LLMRequestDuration tracks a single provider call.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "AI provider call duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider"},
	)

	// LLMRequestsTotal counts provider calls by outcome.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total AI provider calls",
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// DispatchFanout tracks how many providers a single turn is sent to.
	DispatchFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_dispatch_fanout",
			Help:    "Number of provider calls per dispatch",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
		},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role", "outcome"},
	)

	// ActivityEventsTotal tracks activity log writes by action.
	ActivityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_total",
			Help: "Total activity log entries by action",
		},
		[]string{"action"},
	)

	// ActivityLogFailures counts swallowed activity log failures.
	ActivityLogFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_log_failures_total",
			Help: "Activity log writes or publishes that failed",
		},
		[]string{"sink"},
	)

	// StudentsByStatus is the last computed dashboard breakdown.
	StudentsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_students",
			Help: "Students per activity status at the last dashboard fetch",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordLLMCall records metrics for one provider call.
func RecordLLMCall(provider, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider).Observe(duration)
	LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	if tokensIn > 0 {
		LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
	}
}

// RecordDashboard publishes the status counts of a dashboard fetch.
func RecordDashboard(active, idle, stuck int) {
	StudentsByStatus.WithLabelValues("active").Set(float64(active))
	StudentsByStatus.WithLabelValues("idle").Set(float64(idle))
	StudentsByStatus.WithLabelValues("stuck").Set(float64(stuck))
}
