package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// RequestIDHeader is the metadata key a caller may set to propagate its own id.
const RequestIDHeader = "x-request-id"

// ContextMiddleware tags every request with an id, reusing the caller's
// x-request-id when present.
func ContextMiddleware(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDHeader); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = generateRequestID()
	}
	return handler(WithRequestID(ctx, id), req)
}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id stored by ContextMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func generateRequestID() string {
	return uuid.NewString()
}
