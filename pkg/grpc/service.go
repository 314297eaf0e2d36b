package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pluginhost.v1.Operators"

const (
	listOperatorsMethod = "/" + ServiceName + "/ListOperators"
	resolveInputMethod  = "/" + ServiceName + "/ResolveInput"
	executeMethod       = "/" + ServiceName + "/Execute"
)

// OperatorsServer is the server API of the operator service. Requests and
// responses are JSON objects carried as structpb.Struct.
type OperatorsServer interface {
	ListOperators(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveInput(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterOperatorsServer registers srv on s.
func RegisterOperatorsServer(s grpc.ServiceRegistrar, srv OperatorsServer) {
	s.RegisterService(&Operators_ServiceDesc, srv)
}

func unaryHandler(method string, call func(OperatorsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OperatorsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OperatorsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Operators_ServiceDesc describes the operator service.
var Operators_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OperatorsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListOperators",
			Handler:    unaryHandler(listOperatorsMethod, OperatorsServer.ListOperators),
		},
		{
			MethodName: "ResolveInput",
			Handler:    unaryHandler(resolveInputMethod, OperatorsServer.ResolveInput),
		},
		{
			MethodName: "Execute",
			Handler:    unaryHandler(executeMethod, OperatorsServer.Execute),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pluginhost/v1/operators.proto",
}

// toStruct converts a JSON-serialisable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into out through its JSON form.
func fromStruct(s *structpb.Struct, out any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
