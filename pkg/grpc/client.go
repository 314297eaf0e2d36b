package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

// Client calls the operator service of a plugin server.
type Client struct {
	conn    *grpc.ClientConn
	Address string
}

// NewClient creates a client for a local port.
func NewClient(port int) (*Client, error) {
	return NewClientWithAddress(fmt.Sprintf("localhost:%d", port))
}

// NewClientWithAddress creates a client that connects to address. The
// connection is established lazily.
func NewClientWithAddress(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to address %s: %w", address, err)
	}
	return &Client{conn: conn, Address: address}, nil
}

// Check performs a single health check.
func (c *Client) Check(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check failed: status %s", resp.GetStatus())
	}
	return nil
}

// WaitReady polls the health service until it reports SERVING.
func (c *Client) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		checkCtx, cancel := context.WithTimeout(ctx, delay)
		err = c.Check(checkCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// ListOperators returns the configs of the served operators.
func (c *Client) ListOperators(ctx context.Context) ([]operator.Config, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, listOperatorsMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}
	var resp listResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Operators, nil
}

func (c *Client) invoke(ctx context.Context, method, name string, params operator.Params, requestID string) (*structpb.Struct, error) {
	in, err := toStruct(invokeRequest{Operator: name, Params: params, RequestID: requestID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveInput resolves the input form of the named operator.
func (c *Client) ResolveInput(ctx context.Context, name string, params operator.Params, requestID string) (*types.Property, error) {
	out, err := c.invoke(ctx, resolveInputMethod, name, params, requestID)
	if err != nil {
		return nil, err
	}
	var resp resolveResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Property, nil
}

// Execute executes the named operator.
func (c *Client) Execute(ctx context.Context, name string, params operator.Params, requestID string) (*ExecuteResponse, error) {
	out, err := c.invoke(ctx, executeMethod, name, params, requestID)
	if err != nil {
		return nil, err
	}
	var resp ExecuteResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ClientFunc returns the current client of a plugin server.
type ClientFunc func() (*Client, error)

// RemoteOperator is an operator served by a plugin process.
type RemoteOperator struct {
	client ClientFunc
	config operator.Config
}

// NewRemoteOperator returns an operator that forwards calls to client.
func NewRemoteOperator(client *Client, config operator.Config) *RemoteOperator {
	return NewRemoteOperatorFunc(func() (*Client, error) { return client, nil }, config)
}

// NewRemoteOperatorFunc returns an operator that forwards each call to the
// client returned by fn at call time, so a restarted server is picked up.
func NewRemoteOperatorFunc(fn ClientFunc, config operator.Config) *RemoteOperator {
	return &RemoteOperator{client: fn, config: config}
}

// Config implements operator.Operator.
func (r *RemoteOperator) Config() operator.Config {
	return r.config
}

// ResolveInput implements operator.Operator.
func (r *RemoteOperator) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	return client.ResolveInput(ctx.Context(), r.config.Name, ctx.Params, ctx.RequestID)
}

// Execute implements operator.Operator. Triggers requested by the remote
// operator are replayed on ctx.
func (r *RemoteOperator) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	resp, err := client.Execute(ctx.Context(), r.config.Name, ctx.Params, ctx.RequestID)
	if err != nil {
		return nil, err
	}
	for _, t := range resp.Triggers {
		if err := ctx.Trigger(t.Name, t.Params); err != nil {
			return resp.Result, fmt.Errorf("trigger %s: %w", t.Name, err)
		}
	}
	return resp.Result, nil
}
