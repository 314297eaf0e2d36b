package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

// AddNumbers adds a series of numbers together.
type AddNumbers struct{}

func (AddNumbers) Config() operator.Config {
	return operator.Config{
		Name:        "add_numbers",
		Label:       "Add numbers",
		Description: "Adds a series of numbers together",
		Dynamic:     true,
	}
}

// ResolveInput shows the running total once both required numbers are set.
func (AddNumbers) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	inputs.Float("num1", types.Label("First number"), types.Required(true))
	inputs.Float("num2", types.Label("Second number"), types.Required(true))
	inputs.Float("num3", types.Label("Third number"), types.Description("Optional"))
	inputs.Str("extra", types.Label("More numbers"), types.Description("Comma-separated numbers to add"))

	if sum, err := add(ctx.Params); err == nil {
		inputs.View("total", types.NewNotice(fmt.Sprintf("Total: %g", sum)))
	}
	return types.NewProperty(inputs), nil
}

func (AddNumbers) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	sum, err := add(ctx.Params)
	if err != nil {
		return nil, err
	}
	return operator.Result{"sum": sum}, nil
}

// ResolveOutput describes the sum returned by Execute.
func (AddNumbers) ResolveOutput(ctx *operator.ExecutionContext) (*types.Property, error) {
	outputs := types.NewObject()
	outputs.Float("sum", types.Label("Sum"))
	return types.NewProperty(outputs), nil
}

func add(params operator.Params) (float64, error) {
	var sum float64
	for _, name := range []string{"num1", "num2"} {
		v, ok := params.Float(name)
		if !ok {
			return 0, fmt.Errorf("%s is required and must be a number", name)
		}
		sum += v
	}
	if v, ok := params.Float("num3"); ok {
		sum += v
	}
	for _, field := range strings.Split(params.String("extra"), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q in extra", field)
		}
		sum += v
	}
	return sum, nil
}
