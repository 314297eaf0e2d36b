package operator

import (
	"errors"

	"github.com/example/pluginhost/pkg/types"
)

// ErrOperatorNotFound is returned when no operator is registered under a URI.
var ErrOperatorNotFound = errors.New("operator not found")

// Config describes an operator to the host.
type Config struct {
	Name               string `json:"name" yaml:"name"`
	Label              string `json:"label,omitempty" yaml:"label,omitempty"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`
	Icon               string `json:"icon,omitempty" yaml:"icon,omitempty"`
	LightIcon          string `json:"light_icon,omitempty" yaml:"light_icon,omitempty"`
	DarkIcon           string `json:"dark_icon,omitempty" yaml:"dark_icon,omitempty"`
	Dynamic            bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	ExecuteAsGenerator bool   `json:"execute_as_generator,omitempty" yaml:"execute_as_generator,omitempty"`
	Unlisted           bool   `json:"unlisted,omitempty" yaml:"unlisted,omitempty"`
	OnStartup          bool   `json:"on_startup,omitempty" yaml:"on_startup,omitempty"`
}

// Result is the value returned from Execute. A nil Result is valid.
type Result map[string]any

// Operator is a named action with a declarative input form.
//
// ResolveInput may be called any number of times while the user edits the
// form; it must not have side effects. Execute is called once on submit.
type Operator interface {
	Config() Config
	ResolveInput(ctx *ExecutionContext) (*types.Property, error)
	Execute(ctx *ExecutionContext) (Result, error)
}

// OutputResolver is implemented by operators that describe their result.
type OutputResolver interface {
	ResolveOutput(ctx *ExecutionContext) (*types.Property, error)
}

// DelegationResolver is implemented by operators that may run delegated.
type DelegationResolver interface {
	ResolveDelegation(ctx *ExecutionContext) bool
}

// PlacementResolver is implemented by operators that render a button.
type PlacementResolver interface {
	ResolvePlacement(ctx *ExecutionContext) *types.Placement
}
