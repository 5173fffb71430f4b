package middleware

import (
	"context"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NewRequestMetrics creates the request counter and latency histogram used by
// NewMetricsInterceptor.
func NewRequestMetrics() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyflow_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energyflow_grpc_request_duration_seconds",
			Help:    "gRPC request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	return requests, latency
}

func NewMetricsInterceptor(
	requests *prometheus.CounterVec,
	latency *prometheus.HistogramVec,
) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		// Record metrics
		duration := time.Since(start).Seconds()
		method := path.Base(info.FullMethod)

		requests.WithLabelValues(method, status.Code(err).String()).Inc()
		latency.WithLabelValues(method).Observe(duration)

		return resp, err
	}
}
