// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sleepfit"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"method"})

	// SyncRuns counts sync operations. kind is sleep, activity or all;
	// outcome is success or failure.
	SyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Fitbit sync runs, labeled by kind and outcome.",
	}, []string{"kind", "outcome"})

	FitbitRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fitbit",
		Name:      "requests_total",
		Help:      "Outbound Fitbit API calls, labeled by endpoint and response status.",
	}, []string{"endpoint", "status"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fitbit",
		Name:      "token_refreshes_total",
		Help:      "Fitbit access token refresh attempts, labeled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, SyncRuns, FitbitRequests, TokenRefreshes)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// StatusLabel renders an HTTP status for a label. Zero means the request
// never produced a response.
func StatusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
