package chain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_chain_requests_total",
			Help: "Total number of Chain Client requests by method",
		},
		[]string{"method"},
	)

	rpcRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_chain_retries_total",
			Help: "Total number of Chain Client retry attempts by method",
		},
		[]string{"method"},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_chain_errors_total",
			Help: "Total number of Chain Client errors by method and class",
		},
		[]string{"method", "class"},
	)

	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evmsync_chain_request_duration_seconds",
			Help:    "Duration of Chain Client requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// RPCMethodInc records an attempted call to method.
func RPCMethodInc(method string) {
	rpcRequests.WithLabelValues(method).Inc()
}

// RPCRetryInc records a retry attempt for method.
func RPCRetryInc(method string) {
	rpcRetries.WithLabelValues(method).Inc()
}

// RPCMethodDuration records how long a call to method took.
func RPCMethodDuration(method string, d time.Duration) {
	rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RPCMethodError records that a call to method failed, classified by
// sentinel (unavailable, not_found, protocol).
func RPCMethodError(method, class string) {
	rpcErrors.WithLabelValues(method, class).Inc()
}
