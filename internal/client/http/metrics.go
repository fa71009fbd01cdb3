package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream request metrics, labelled by upstream name so the gateway and the
// ledger client report separately.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wefund_upstream_requests_total",
		Help: "Total requests made to upstream services",
	}, []string{"upstream", "method", "path", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wefund_upstream_request_duration_seconds",
		Help:    "Upstream request latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream", "method", "path"})

	upstreamRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wefund_upstream_request_errors_total",
		Help: "Total upstream request failures",
	}, []string{"upstream", "method", "path"})
)

// PrometheusMetricsCollector reports client metrics to prometheus
type PrometheusMetricsCollector struct {
	upstream string
}

// NewPrometheusMetricsCollector creates a collector for the named upstream
func NewPrometheusMetricsCollector(upstream string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{upstream: upstream}
}

func (p *PrometheusMetricsCollector) RecordRequestDuration(method, path string, statusCode int, duration time.Duration) {
	upstreamRequestDuration.WithLabelValues(p.upstream, method, path).Observe(duration.Seconds())
}

func (p *PrometheusMetricsCollector) RecordRequestCount(method, path string, statusCode int) {
	upstreamRequestsTotal.WithLabelValues(p.upstream, method, path, strconv.Itoa(statusCode)).Inc()
}

func (p *PrometheusMetricsCollector) RecordRequestError(method, path string) {
	upstreamRequestErrors.WithLabelValues(p.upstream, method, path).Inc()
}
