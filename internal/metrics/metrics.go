// Package metrics exposes Prometheus metrics for Vault requests made by
// dsvault and for "kv watch".
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	watchVersion     *prometheus.GaugeVec
	watchChanges     *prometheus.CounterVec
	watchPollsFailed *prometheus.CounterVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers the collectors with the default registry. Safe to
// call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsvault_vault_requests_total",
			Help: "Vault API requests by operation and outcome",
		}, []string{"op", "outcome"})

		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsvault_vault_request_duration_seconds",
			Help:    "Latency of Vault API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"})

		watchVersion = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsvault_watch_current_version",
			Help: "Current version of a watched secret",
		}, []string{"mount", "path"})

		watchChanges = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsvault_watch_changes_total",
			Help: "Version changes observed on a watched secret, by kind",
		}, []string{"mount", "path", "kind"})

		watchPollsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dsvault_watch_poll_failures_total",
			Help: "Failed metadata polls of a watched secret",
		}, []string{"mount", "path"})

		metricsRegistered = true
	})
}

// IsMetricsRegistered reports whether InitMetrics has run.
func IsMetricsRegistered() bool {
	return metricsRegistered
}

// RequestsTotal returns the request counter, or nil before InitMetrics.
func RequestsTotal() *prometheus.CounterVec { return requestsTotal }

// RequestDuration returns the latency histogram, or nil before InitMetrics.
func RequestDuration() *prometheus.HistogramVec { return requestDuration }

// WatchVersion returns the watched-version gauge, or nil before InitMetrics.
func WatchVersion() *prometheus.GaugeVec { return watchVersion }

// WatchChanges returns the change counter, or nil before InitMetrics.
func WatchChanges() *prometheus.CounterVec { return watchChanges }

// WatchPollFailures returns the poll failure counter, or nil before InitMetrics.
func WatchPollFailures() *prometheus.CounterVec { return watchPollsFailed }

func recordRequest(op, outcome string, seconds float64) {
	if !metricsRegistered {
		return
	}
	requestsTotal.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(seconds)
}

// RecordWatchVersion sets the current version of a watched path.
func RecordWatchVersion(mount, path string, version int) {
	if !metricsRegistered {
		return
	}
	watchVersion.WithLabelValues(mount, path).Set(float64(version))
}

// RecordWatchChange counts one observed change. kind is "new_version",
// "deleted", "destroyed" or "undeleted".
func RecordWatchChange(mount, path, kind string) {
	if !metricsRegistered {
		return
	}
	watchChanges.WithLabelValues(mount, path, kind).Inc()
}

// RecordWatchPollFailure counts one failed poll.
func RecordWatchPollFailure(mount, path string) {
	if !metricsRegistered {
		return
	}
	watchPollsFailed.WithLabelValues(mount, path).Inc()
}
