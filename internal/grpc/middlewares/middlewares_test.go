package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/energyflow.v1.FlowService/GetFlow"}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "response-" + req.(string), nil
}

func TestContextMiddlewareGeneratesID(t *testing.T) {
	var seen string
	_, err := ContextMiddleware(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestContextMiddlewarePropagatesID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "abc-123"))

	var seen string
	_, err := ContextMiddleware(ctx, "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", seen)
}

func TestRateLimitingInterceptor(t *testing.T) {
	interceptor := NewRateLimitingInterceptor(0.001, 2)

	for i := 0; i < 2; i++ {
		resp, err := interceptor(context.Background(), "req", info, okHandler)
		require.NoError(t, err)
		assert.Equal(t, "response-req", resp)
	}

	_, err := interceptor(context.Background(), "req", info, okHandler)
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestLoggingInterceptor(t *testing.T) {
	logger, hook := test.NewNullLogger()
	interceptor := NewLoggingInterceptor(logger)

	ctx := WithRequestID(context.Background(), "req-1")
	_, err := interceptor(ctx, "req", info, okHandler)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, info.FullMethod, entry.Data["method"])
	assert.Equal(t, "OK", entry.Data["code"])

	_, err = interceptor(ctx, "req", info, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})
	require.Error(t, err)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "InvalidArgument", hook.LastEntry().Data["code"])
}

func TestMetricsInterceptor(t *testing.T) {
	requests, latency := NewRequestMetrics()
	interceptor := NewMetricsInterceptor(requests, latency)

	_, err := interceptor(context.Background(), "req", info, okHandler)
	require.NoError(t, err)
	_, err = interceptor(context.Background(), "req", info, func(context.Context, interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("GetFlow", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("GetFlow", "Unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(latency))
}
