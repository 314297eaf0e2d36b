package operator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Trigger is a follow-up operator invocation requested during Execute.
type Trigger struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// TriggerHandler receives triggers as they are requested.
type TriggerHandler interface {
	OnTrigger(name string, params map[string]any) error
}

// ExecutionContext is the per-invocation state passed to an operator.
type ExecutionContext struct {
	ctx       context.Context
	Params    Params
	Logger    *slog.Logger
	RequestID string

	handler  TriggerHandler
	mu       sync.Mutex
	triggers []Trigger
}

// ContextOption customizes an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *ExecutionContext) {
		c.Logger = logger
	}
}

// WithRequestID overrides the generated request id.
func WithRequestID(id string) ContextOption {
	return func(c *ExecutionContext) {
		c.RequestID = id
	}
}

// WithTriggerHandler forwards triggers to h.
func WithTriggerHandler(h TriggerHandler) ContextOption {
	return func(c *ExecutionContext) {
		c.handler = h
	}
}

// NewExecutionContext returns a context for a single invocation.
func NewExecutionContext(ctx context.Context, params Params, opts ...ContextOption) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = Params{}
	}
	c := &ExecutionContext{
		ctx:    ctx,
		Params: params,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.RequestID == "" {
		c.RequestID = uuid.NewString()
	}
	c.Logger = c.Logger.With("request_id", c.RequestID)
	return c
}

// Context returns the request context.
func (c *ExecutionContext) Context() context.Context {
	return c.ctx
}

// Trigger records a follow-up invocation and forwards it to the handler.
func (c *ExecutionContext) Trigger(name string, params map[string]any) error {
	c.mu.Lock()
	c.triggers = append(c.triggers, Trigger{Name: name, Params: params})
	c.mu.Unlock()

	if c.handler != nil {
		return c.handler.OnTrigger(name, params)
	}
	return nil
}

// Triggers returns the triggers recorded so far.
func (c *ExecutionContext) Triggers() []Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Trigger, len(c.triggers))
	copy(out, c.triggers)
	return out
}
