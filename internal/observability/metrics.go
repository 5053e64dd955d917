package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapdlctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapdlctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route", "status"},
	)
	rpcCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapdlctl",
			Subsystem: "grpc",
			Name:      "calls_total",
			Help:      "Total gRPC calls issued to MAPDL instances.",
		},
		[]string{"target", "method", "code"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapdlctl",
			Subsystem: "grpc",
			Name:      "call_duration_seconds",
			Help:      "gRPC call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target", "method", "code"},
	)
	poolInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mapdlctl",
			Subsystem: "pool",
			Name:      "instances",
			Help:      "MAPDL pool instances by state.",
		},
		[]string{"state"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, rpcCalls, rpcDuration, poolInstances)
	})
}

func RecordHTTPRequest(service, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, route, statusLabel).Observe(duration.Seconds())
}

// RecordRPC counts one finished gRPC call. code is the grpc status code name.
func RecordRPC(target, method, code string, duration time.Duration) {
	RegisterMetrics()
	rpcCalls.WithLabelValues(target, method, code).Inc()
	rpcDuration.WithLabelValues(target, method, code).Observe(duration.Seconds())
}

func SetPoolInstances(state string, n int) {
	RegisterMetrics()
	poolInstances.WithLabelValues(state).Set(float64(n))
}
