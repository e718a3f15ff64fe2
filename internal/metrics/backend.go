package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search backend Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"op", "index", "status"}, // status: success, transport_error, status_error, decode_error
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchgate",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op", "index"},
	)

	BackendHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "backend_hits_total",
			Help:      "Total number of rows returned by the search backend",
		},
		[]string{"index"},
	)
)

var backendMetricsRegistered bool

// RegisterBackendMetrics registers Prometheus backend metrics. Must be called once from main.
func RegisterBackendMetrics() {
	if backendMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(BackendHitsTotal)
	backendMetricsRegistered = true
}
