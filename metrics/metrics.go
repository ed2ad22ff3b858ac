package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeNoAPIKey    = "api_key_missing"
	OutcomeHTTPError   = "http_error"
	OutcomeAPIError    = "api_error"
	OutcomeServerError = "server_error"
)

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_gateway_requests_total",
		Help: "Total number of requests handled by the gateway",
	}, []string{"route", "method", "status"})

	upstreamTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_gateway_upstream_requests_total",
		Help: "Place details lookups by route and outcome",
	}, []string{"route", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "places_gateway_upstream_latency_ms",
		Help:    "Place details lookup latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12), // 5ms to ~10s
	}, []string{"route"})
)

// RecordRequest counts one served request.
func RecordRequest(route, method string, status int) {
	requestTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordUpstream counts one lookup and its latency.
func RecordUpstream(route, outcome string, elapsed time.Duration) {
	upstreamTotal.WithLabelValues(route, outcome).Inc()
	if outcome != OutcomeNoAPIKey {
		upstreamLatency.WithLabelValues(route).Observe(float64(elapsed) / float64(time.Millisecond))
	}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
