package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/tejusbharadwaj/energyflow/internal/engine"
	middleware "github.com/tejusbharadwaj/energyflow/internal/grpc/middlewares"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "energyflow.v1.FlowService"

// ErrInvalidServerConfig is returned by SetupServer for unusable limits.
var ErrInvalidServerConfig = errors.New("invalid server config")

// ServerConfig holds configuration options for the gRPC server
type ServerConfig struct {
	RateLimit      float64       // Requests per second
	RateLimitBurst int           // Maximum burst size for rate limiting
	MaxRange       time.Duration // Longest period a request may ask for
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RateLimit:      100,
		RateLimitBurst: 200,
		MaxRange:       DefaultMaxRange,
	}
}

// FlowRequest selects the period to reconcile.
type FlowRequest struct {
	Start       *timestamppb.Timestamp `json:"start"`
	End         *timestamppb.Timestamp `json:"end"`
	Granularity string                 `json:"granularity"`
}

// FlowResponse carries one FlowRecord, or one per bucket for breakdowns.
type FlowResponse struct {
	Record  *models.FlowRecord  `json:"record,omitempty"`
	Buckets []models.FlowRecord `json:"buckets,omitempty"`
}

// CurrentRequest asks for the active period's record.
type CurrentRequest struct{}

// FlowComputer computes FlowRecords on demand.
type FlowComputer interface {
	Compute(ctx context.Context, period models.Period) (models.FlowRecord, error)
	Breakdown(ctx context.Context, period models.Period) ([]models.FlowRecord, error)
}

// PeriodTracker owns the active period.
type PeriodTracker interface {
	Select(ctx context.Context, period models.Period) (models.FlowRecord, error)
	Current() (models.FlowRecord, bool)
}

// FlowServer is the server API for FlowService.
type FlowServer interface {
	GetFlow(context.Context, *FlowRequest) (*FlowResponse, error)
	GetBreakdown(context.Context, *FlowRequest) (*FlowResponse, error)
	SelectPeriod(context.Context, *FlowRequest) (*FlowResponse, error)
	CurrentFlow(context.Context, *CurrentRequest) (*FlowResponse, error)
}

// FlowService encapsulates business logic
type FlowService struct {
	computer  FlowComputer
	tracker   PeriodTracker
	validator *RequestValidator
}

// NewFlowService creates a new service instance. tracker may be nil, in which
// case SelectPeriod and CurrentFlow report Unimplemented.
func NewFlowService(computer FlowComputer, tracker PeriodTracker, maxRange time.Duration) *FlowService {
	return &FlowService{
		computer:  computer,
		tracker:   tracker,
		validator: NewRequestValidator(maxRange),
	}
}

// GetFlow reconciles the requested period.
func (s *FlowService) GetFlow(ctx context.Context, req *FlowRequest) (*FlowResponse, error) {
	period, err := s.period(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.computer.Compute(ctx, period)
	if err != nil {
		return nil, toStatus(err)
	}
	return &FlowResponse{Record: &rec}, nil
}

// GetBreakdown reconciles each granularity bucket of the requested period.
func (s *FlowService) GetBreakdown(ctx context.Context, req *FlowRequest) (*FlowResponse, error) {
	period, err := s.period(req)
	if err != nil {
		return nil, err
	}

	records, err := s.computer.Breakdown(ctx, period)
	if err != nil {
		return nil, toStatus(err)
	}
	return &FlowResponse{Buckets: records}, nil
}

// SelectPeriod makes the requested period the active one.
func (s *FlowService) SelectPeriod(ctx context.Context, req *FlowRequest) (*FlowResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "period tracking is disabled")
	}
	period, err := s.period(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.tracker.Select(ctx, period)
	if err != nil {
		return nil, toStatus(err)
	}
	return &FlowResponse{Record: &rec}, nil
}

// CurrentFlow returns the active period's most recent record.
func (s *FlowService) CurrentFlow(ctx context.Context, _ *CurrentRequest) (*FlowResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "period tracking is disabled")
	}
	rec, ok := s.tracker.Current()
	if !ok {
		return nil, status.Error(codes.NotFound, "no active period")
	}
	return &FlowResponse{Record: &rec}, nil
}

func (s *FlowService) period(req *FlowRequest) (models.Period, error) {
	// Convert protobuf timestamps
	var start, end time.Time
	if req.Start != nil {
		start = req.Start.AsTime()
	}
	if req.End != nil {
		end = req.End.AsTime()
	}

	// Validate request
	if err := s.validator.Validate(start, end, req.Granularity); err != nil {
		return models.Period{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return models.Period{Start: start, End: end, Granularity: models.Granularity(req.Granularity)}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidPeriod):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrSuperseded):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Errorf(codes.Internal, "flow computation failed: %v", err)
}

// RegisterFlowServer registers srv on s.
func RegisterFlowServer(s grpc.ServiceRegistrar, srv FlowServer) {
	s.RegisterService(&FlowServiceDesc, srv)
}

// FlowServiceDesc is the grpc.ServiceDesc for FlowService.
var FlowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FlowServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetFlow", Handler: flowHandler("GetFlow", FlowServer.GetFlow)},
		{MethodName: "GetBreakdown", Handler: flowHandler("GetBreakdown", FlowServer.GetBreakdown)},
		{MethodName: "SelectPeriod", Handler: flowHandler("SelectPeriod", FlowServer.SelectPeriod)},
		{MethodName: "CurrentFlow", Handler: currentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "energyflow/v1/flow",
}

func flowHandler(method string, call func(FlowServer, context.Context, *FlowRequest) (*FlowResponse, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := fmt.Sprintf("/%s/%s", ServiceName, method)
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(FlowRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FlowServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FlowServer), ctx, req.(*FlowRequest))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func currentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CurrentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowServer).CurrentFlow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CurrentFlow"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowServer).CurrentFlow(ctx, req.(*CurrentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// FlowClient is the client API for FlowService.
type FlowClient struct {
	cc grpc.ClientConnInterface
}

// NewFlowClient wraps cc. Calls are sent with the JSON content subtype.
func NewFlowClient(cc grpc.ClientConnInterface) *FlowClient {
	return &FlowClient{cc: cc}
}

func (c *FlowClient) GetFlow(ctx context.Context, in *FlowRequest, opts ...grpc.CallOption) (*FlowResponse, error) {
	return c.invoke(ctx, "GetFlow", in, opts)
}

func (c *FlowClient) GetBreakdown(ctx context.Context, in *FlowRequest, opts ...grpc.CallOption) (*FlowResponse, error) {
	return c.invoke(ctx, "GetBreakdown", in, opts)
}

func (c *FlowClient) SelectPeriod(ctx context.Context, in *FlowRequest, opts ...grpc.CallOption) (*FlowResponse, error) {
	return c.invoke(ctx, "SelectPeriod", in, opts)
}

func (c *FlowClient) CurrentFlow(ctx context.Context, opts ...grpc.CallOption) (*FlowResponse, error) {
	return c.invoke(ctx, "CurrentFlow", &CurrentRequest{}, opts)
}

func (c *FlowClient) invoke(ctx context.Context, method string, in interface{}, opts []grpc.CallOption) (*FlowResponse, error) {
	out := new(FlowResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfigureGRPCServer registers the service without the middleware (for
// development and debug only)
func ConfigureGRPCServer(
	computer FlowComputer,
	tracker PeriodTracker,
	opts ...grpc.ServerOption,
) *grpc.Server {
	// Create gRPC server with optional configurations
	srv := grpc.NewServer(opts...)

	// Register service
	RegisterFlowServer(srv, NewFlowService(computer, tracker, DefaultMaxRange))

	return srv
}

// SetupServer initializes and configures the gRPC server with all middleware.
// Request metrics are registered with reg when it is not nil.
func SetupServer(
	computer FlowComputer,
	tracker PeriodTracker,
	health *HealthChecker,
	logger *logrus.Logger,
	reg prometheus.Registerer,
	config ServerConfig,
) (*grpc.Server, error) {
	if config.RateLimit <= 0 || config.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("%w: rate limit %v burst %d", ErrInvalidServerConfig, config.RateLimit, config.RateLimitBurst)
	}

	requests, latency := middleware.NewRequestMetrics()
	if reg != nil {
		if err := reg.Register(requests); err != nil {
			return nil, fmt.Errorf("failed to register request metrics: %w", err)
		}
		if err := reg.Register(latency); err != nil {
			return nil, fmt.Errorf("failed to register latency metrics: %w", err)
		}
	}

	limiter := middleware.NewRateLimitingInterceptor(config.RateLimit, config.RateLimitBurst)

	// Create server with chained interceptors
	server := grpc.NewServer(
		grpc.UnaryInterceptor(
			chainUnaryInterceptors(
				middleware.ContextMiddleware,                        // Add request ID first
				limiter,                                             // Rate limit early
				middleware.NewLoggingInterceptor(logger),            // Log all requests (with request ID)
				middleware.NewMetricsInterceptor(requests, latency), // Collect metrics
			),
		),
	)

	// Register the flow service
	RegisterFlowServer(server, NewFlowService(computer, tracker, config.MaxRange))

	if health != nil {
		grpc_health_v1.RegisterHealthServer(server, health)
	}

	return server, nil
}

// chainUnaryInterceptors creates a single interceptor from multiple interceptors
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			chainedInterceptor := chain
			chain = func(currentCtx context.Context, currentReq interface{}) (interface{}, error) {
				return interceptor(currentCtx, currentReq, info, chainedInterceptor)
			}
		}
		return chain(ctx, req)
	}
}
