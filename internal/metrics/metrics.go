// Package metrics exposes Prometheus collectors for the relay service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	relaySubmissionsTotal      *prometheus.CounterVec
	relayPublishTotal          *prometheus.CounterVec
	relayPublishDuration       *prometheus.HistogramVec
	relayMediaBytes            prometheus.Histogram
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"method", "route"},
		)

		relaySubmissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_submissions_total",
				Help: "Total number of form submissions, labeled by accepted/rejected status.",
			},
			[]string{"status"},
		)

		relayPublishTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_publish_total",
				Help: "Total number of publish attempts, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		relayPublishDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_publish_duration_seconds",
				Help:    "Histogram of publish latencies per platform.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"platform"},
		)

		relayMediaBytes = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_media_bytes",
				Help:    "Size of uploaded media attached to submissions.",
				Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_ratelimit_delay_seconds",
				Help:    "Time publishes spent waiting on the per-platform rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"platform"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSubmission counts a submission as accepted or rejected.
func ObserveSubmission(accepted bool) {
	Init()
	status := "rejected"
	if accepted {
		status = "accepted"
	}
	relaySubmissionsTotal.WithLabelValues(status).Inc()
}

// ObservePublish records one publish attempt.
func ObservePublish(platform, outcome string, duration time.Duration) {
	Init()
	relayPublishTotal.WithLabelValues(platform, outcome).Inc()
	relayPublishDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// ObserveMedia records the size of an uploaded file.
func ObserveMedia(size int) {
	Init()
	relayMediaBytes.Observe(float64(size))
}

// ObserveRateLimitDelay records how long a publish waited for a token.
func ObserveRateLimitDelay(platform string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(platform).Observe(delay.Seconds())
}
