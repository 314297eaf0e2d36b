package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

type listResponse struct {
	Operators []operator.Config `json:"operators"`
}

type invokeRequest struct {
	Operator  string         `json:"operator"`
	Params    map[string]any `json:"params,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

type resolveResponse struct {
	Property *types.Property `json:"property"`
}

// ExecuteResponse is the outcome of a remote Execute.
type ExecuteResponse struct {
	Result   operator.Result    `json:"result,omitempty"`
	Triggers []operator.Trigger `json:"triggers,omitempty"`
}

// Server exposes the operators of a registry over gRPC.
type Server struct {
	Registry *operator.Registry
	Logger   *slog.Logger
}

// NewServer creates a server for reg.
func NewServer(reg *operator.Registry, logger *slog.Logger) *Server {
	return &Server{Registry: reg, Logger: logger}
}

// ListOperators implements OperatorsServer.
func (s *Server) ListOperators(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp := listResponse{Operators: []operator.Config{}}
	for _, e := range s.Registry.List() {
		cfg := e.Operator.Config()
		cfg.Name = e.URI
		resp.Operators = append(resp.Operators, cfg)
	}
	return toStruct(resp)
}

func (s *Server) lookup(ctx context.Context, in *structpb.Struct) (operator.Operator, *operator.ExecutionContext, error) {
	var req invokeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, nil, status.Error(codes.InvalidArgument, err.Error())
	}
	op, err := s.Registry.Get(req.Operator)
	if err != nil {
		return nil, nil, status.Error(codes.NotFound, err.Error())
	}
	logger := s.Logger.With("operator", req.Operator)
	ectx := operator.NewExecutionContext(ctx, req.Params,
		operator.WithLogger(logger), operator.WithRequestID(req.RequestID))
	return op, ectx, nil
}

// ResolveInput implements OperatorsServer.
func (s *Server) ResolveInput(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	op, ectx, err := s.lookup(ctx, in)
	if err != nil {
		return nil, err
	}
	prop, err := op.ResolveInput(ectx)
	if err != nil {
		ectx.Logger.Error("resolve input failed", "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(resolveResponse{Property: prop})
}

// Execute implements OperatorsServer.
func (s *Server) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	op, ectx, err := s.lookup(ctx, in)
	if err != nil {
		return nil, err
	}
	result, err := op.Execute(ectx)
	if err != nil {
		ectx.Logger.Error("execute failed", "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(ExecuteResponse{Result: result, Triggers: ectx.Triggers()})
}

// StartHealthServer registers a health service reporting SERVING.
func StartHealthServer(server *grpc.Server) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return healthServer
}

// NewGRPCServer returns a grpc.Server with the operator and health services
// registered.
func NewGRPCServer(reg *operator.Registry, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(opts...)
	RegisterOperatorsServer(gs, NewServer(reg, logger))
	StartHealthServer(gs)
	return gs
}

// Serve serves reg on lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, reg *operator.Registry, logger *slog.Logger) error {
	gs := NewGRPCServer(reg, logger)
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	logger.Info("serving operators", "addr", lis.Addr().String())
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe serves reg on the given local port.
func ListenAndServe(ctx context.Context, port int, reg *operator.Registry, logger *slog.Logger) error {
	if port <= 0 {
		return fmt.Errorf("invalid port: %d", port)
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	return Serve(ctx, lis, reg, logger)
}
