package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_store_operations_total",
			Help: "Total number of record store operations.",
		},
		[]string{"backend", "op", "result"},
	)
	storeOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_store_operation_duration_seconds",
			Help:    "Record store operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_publish_total",
			Help: "Total number of observation publish attempts.",
		},
		[]string{"sink", "result"},
	)
)

// ObserveStore records one store operation. result is a short label such as "ok" or "not_found".
func ObserveStore(backend, op, result string, dur time.Duration) {
	storeOperationsTotal.WithLabelValues(backend, op, result).Inc()
	storeOperationDurationSeconds.WithLabelValues(backend, op).Observe(dur.Seconds())
}

func ObserveHTTPRequest(route, method string, status int, dur time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObservePublish(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishTotal.WithLabelValues(sink, result).Inc()
}
