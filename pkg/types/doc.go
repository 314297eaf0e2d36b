// Package types describes operator forms declaratively.
//
// An operator builds an [Object], adds properties to it and returns it wrapped
// in a root [Property]. The host serialises the tree to JSON and renders each
// property with its [View]. Nothing in this package performs I/O.
//
//	inputs := types.NewObject()
//	inputs.Str("name", types.Required(true))
//	inputs.View("notice", types.NewNotice("Ready"))
//	return types.NewProperty(inputs, types.WithView(types.NewView(types.ViewLabel("My form")))), nil
package types
