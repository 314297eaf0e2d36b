package main

import (
	"fmt"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

var greetings = map[string]string{
	"en": "Hello, %s!",
	"es": "¡Hola, %s!",
	"fr": "Bonjour, %s!",
	"de": "Hallo, %s!",
}

var languages = []string{"en", "es", "fr", "de"}

// SayHello greets someone in one of a few languages.
type SayHello struct{}

func (SayHello) Config() operator.Config {
	return operator.Config{
		Name:        "say_hello",
		Label:       "Say hello",
		Description: "A friendly operator that greets you",
	}
}

func (SayHello) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	inputs.Str("message",
		types.Label("Name"),
		types.Description("The name or message to greet"),
		types.Default("World"),
	)
	inputs.Enum("language", languages,
		types.Label("Language"),
		types.Default("en"),
		types.WithView(types.NewDropdownView()),
	)
	return types.NewProperty(inputs, types.WithView(types.NewView(types.ViewLabel("Say hello")))), nil
}

func (SayHello) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	message := ctx.Params.StringOr("message", "World")
	language := ctx.Params.StringOr("language", "en")

	format, ok := greetings[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s (supported: en, es, fr, de)", language)
	}
	ctx.Logger.Info("greeting", "message", message, "language", language)
	return operator.Result{"greeting": fmt.Sprintf(format, message)}, nil
}
