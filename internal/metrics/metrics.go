// Package metrics holds the prometheus collectors shiptrack exports on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TrackerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_tracker_runs_total",
		Help: "Tracker runs by outcome (ok, failed, skipped)",
	}, []string{"outcome"})
	TrackerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shiptrack_tracker_duration_seconds",
		Help:    "Tracker run duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
	UserErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shiptrack_tracker_user_errors_total",
		Help: "Users whose evaluation failed and was skipped",
	})
	Ships = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shiptrack_ships_total",
		Help: "Valid project updates recorded",
	})
	StreakResets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shiptrack_streak_resets_total",
		Help: "Streaks reset to zero",
	})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_notifications_total",
		Help: "Email notifications by kind and result",
	}, []string{"kind", "result"})
	ClassifierCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_classifier_calls_total",
		Help: "Update classifier calls by result (true, false, error)",
	}, []string{"result"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_api_retries_total",
		Help: "Retried X API requests",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(
		TrackerRuns,
		TrackerDuration,
		UserErrors,
		Ships,
		StreakResets,
		Notifications,
		ClassifierCalls,
		APIRetries,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one tracker run.
func ObserveRun(outcome string, start time.Time) {
	TrackerRuns.WithLabelValues(outcome).Inc()
	TrackerDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncNotification counts one send attempt.
func IncNotification(kind string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	Notifications.WithLabelValues(kind, result).Inc()
}
