package operators

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

// viewOption is a component the builder can generate code for.
type viewOption struct {
	name string
	// code is the constructor as it appears in generated code.
	code  string
	build func(...types.ViewOption) *types.View
}

var (
	radioGroupViews = []viewOption{
		{"Dropdown", "types.NewDropdownView", types.NewDropdownView},
		{"Radio", "types.NewRadioView", types.NewRadioView},
		{"Tabs", "types.NewTabsView", types.NewTabsView},
		{"Autocomplete", "types.NewAutocompleteView", types.NewAutocompleteView},
	}
	booleanViews = []viewOption{
		{"Checkbox", "types.NewCheckboxView", types.NewCheckboxView},
		{"Switch", "types.NewSwitchView", types.NewSwitchView},
	}
	floatViews = []viewOption{
		{"Slider", "types.NewSliderView", types.NewSliderView},
		{"Field", "types.NewFieldView", types.NewFieldView},
	}
	messageViews = []viewOption{
		{name: "Message"},
		{name: "Success"},
		{name: "Warning"},
		{name: "Error"},
		{name: "Header"},
	}
)

// componentKind is a kind of form component offered by the builder.
type componentKind struct {
	name    string
	prefix  string
	noun    string
	options []viewOption
}

var componentKinds = []componentKind{
	{"radio_group", "radio", "radio group", radioGroupViews},
	{"boolean", "boolean", "boolean component", booleanViews},
	{"float", "float", "float component", floatViews},
	{"message", "message", "message component", messageViews},
}

func findKind(name string) (componentKind, bool) {
	for _, k := range componentKinds {
		if k.name == name {
			return k, true
		}
	}
	return componentKind{}, false
}

func findOption(options []viewOption, name string) viewOption {
	for _, o := range options {
		if o.name == name {
			return o
		}
	}
	return options[0]
}

// BuildComponent previews the code that defines a form component.
type BuildComponent struct{}

// NewBuildComponent returns the build_component operator.
func NewBuildComponent() *BuildComponent {
	return &BuildComponent{}
}

func (o *BuildComponent) Config() operator.Config {
	return operator.Config{
		Name:        "build_component",
		Label:       "Plugin Builder: create your perfect plugin component!",
		Description: "Manage plugins",
		Icon:        buildIcon,
		Dynamic:     true,
	}
}

func (o *BuildComponent) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	form := types.WithView(types.NewView(
		types.ViewLabel("Build a Plugin"),
		types.ViewDescription("Create your perfect plugin!")))

	inputs.View("view_type_header", types.NewHeader("View Type",
		types.ViewDescription("Select the type of view you want to create"),
		types.Divider()))

	kinds := types.NewRadioGroup()
	for _, k := range componentKinds {
		kinds.AddChoice(k.name, types.ChoiceLabel(k.name))
	}
	inputs.Enum("view_type", kinds.Values(),
		types.Required(true),
		types.Default(kinds.Choices[0].Value),
		types.WithView(types.NewRadioView()))

	viewType := ctx.Params.String("view_type")
	if viewType == "" {
		return types.NewProperty(inputs, form), nil
	}
	kind, ok := findKind(viewType)
	if !ok {
		return nil, fmt.Errorf("unsupported view type %q", viewType)
	}

	options := types.NewRadioGroup()
	for _, opt := range kind.options {
		options.AddChoice(opt.name, types.ChoiceLabel(opt.name))
	}
	inputs.Message(kind.prefix+"_view_message", fmt.Sprintf("Select the type of %s you want to create", kind.noun))
	inputs.Enum(kind.prefix+"_view_type", options.Values(),
		types.Required(true),
		types.Default(options.Choices[0].Value),
		types.WithView(types.NewRadioView()))

	view := findOption(kind.options, ctx.Params.StringOr(kind.prefix+"_view_type", kind.options[0].name))
	var err error
	switch kind.name {
	case "radio_group":
		err = radioGroupCode(ctx, inputs, view)
	case "boolean":
		booleanCode(ctx, inputs, view)
	case "float":
		err = floatCode(ctx, inputs, view)
	case "message":
		messageCode(ctx, inputs, view)
	}
	if err != nil {
		return nil, err
	}
	return types.NewProperty(inputs, form), nil
}

func (o *BuildComponent) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	return nil, nil
}

// keyPart renders a value as part of a property name. Property names embed
// the current choices so the host re-renders the generated code.
func keyPart(v any) string {
	switch v := v.(type) {
	case nil:
		return "none"
	case *float64:
		if v == nil {
			return "none"
		}
		return formatFloat(*v)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func codeView() *types.View {
	return types.NewCodeView(types.Language("go"))
}

func previewHeader(inputs *types.Object, name, label, description string) {
	inputs.View(name, types.NewHeader(label, types.ViewDescription(description), types.Divider()))
}

var radioChoices = []string{"aaa", "abc", "ace"}

// radioProps is the submitted radio_props object.
type radioProps struct {
	HasDefault bool `param:"has_default"`
	Required   bool `param:"required"`
}

func radioGroupCode(ctx *operator.ExecutionContext, inputs *types.Object, view viewOption) error {
	props := types.NewObject()
	props.Bool("has_default", types.Label("Set default?"), types.Default(false),
		types.WithView(types.NewCheckboxView(types.Space(2))))
	props.Bool("required", types.Label("Required?"), types.Default(false),
		types.WithView(types.NewCheckboxView(types.Space(3))))
	inputs.DefineProperty("radio_props", props)

	var submitted radioProps
	if err := ctx.Params.Decode("radio_props", &submitted); err != nil {
		return err
	}

	var def any
	defaultCode := ""
	if submitted.HasDefault {
		def = radioChoices[0]
		defaultCode = fmt.Sprintf("\ttypes.Default(%q),\n", radioChoices[0])
	}

	code := fmt.Sprintf(`myChoices := []string{"aaa", "abc", "ace"} // replace with your choices

myRadioGroup := types.NewRadioGroup()
for _, choice := range myChoices {
	myRadioGroup.AddChoice(choice, types.ChoiceLabel(choice))
}

inputs.Enum(
	"my_radio_group",
	myRadioGroup.Values(),
	types.Label("My radio groups label"),
	types.Description("My radio groups description"),
	types.WithView(%s()),
%s	types.Required(%t),
)
`, view.code, defaultCode, required)

	inputs.Str(fmt.Sprintf("radio_group_code_%s_%t_%s_%t", view.name, hasDefault, keyPart(def), required),
		types.Label("Radio Group Code"),
		types.Default(code),
		types.WithView(codeView()))

	previewHeader(inputs, "radio_groups_preview", "Radio Groups Preview", "Preview of the radio groups you created above")

	preview := types.NewRadioGroup()
	for _, choice := range radioChoices {
		preview.AddChoice(choice, types.ChoiceLabel(choice))
	}
	inputs.Enum("radio_groups_preview_"+keyPart(def), preview.Values(),
		types.Label("My radio groups label"),
		types.Description("My radio groups description"),
		types.WithView(view.build()),
		types.Default(def),
		types.Required(submitted.Required))
	return nil
}

func booleanCode(ctx *operator.ExecutionContext, inputs *types.Object, view viewOption) {
	inputs.Bool("boolean_view_has_default", types.Label("Set default?"), types.Default(false),
		types.WithView(types.NewCheckboxView()))

	var def any
	defaultCode := ""
	if ctx.Params.Bool("boolean_view_has_default") {
		inputs.Bool("boolean_view_default", types.Label("Default value"), types.Default(false),
			types.WithView(types.NewCheckboxView()))
		value := ctx.Params.Bool("boolean_view_default")
		def = value
		defaultCode = fmt.Sprintf("\ttypes.Default(%t),\n", value)
	}

	code := fmt.Sprintf(`inputs.Bool(
	"my_boolean",
	types.Label("My boolean label"),
	types.Description("My boolean description"),
	types.WithView(%s()),
%s)
`, view.code, defaultCode)

	inputs.Str("boolean_code_"+view.name,
		types.Label("Boolean Code"),
		types.Default(code),
		types.WithView(codeView()))

	previewHeader(inputs, "boolean_preview_header", "Boolean Preview", "Preview of the boolean you created above")

	inputs.Bool("boolean_preview",
		types.Label("My boolean label"),
		types.Description("My boolean description"),
		types.WithView(view.build()),
		types.Default(def))
}

// floatProps is the submitted float_props object. Unset bounds stay nil.
type floatProps struct {
	Min     *float64 `param:"float_view_min"`
	Max     *float64 `param:"float_view_max"`
	Step    *float64 `param:"float_view_step"`
	Default *float64 `param:"float_view_default"`
}

func floatCode(ctx *operator.ExecutionContext, inputs *types.Object, view viewOption) error {
	props := types.NewObject()
	for _, f := range []struct{ name, label, description string }{
		{"float_view_min", "Min", "Min value for the float"},
		{"float_view_max", "Max", "Max value for the float"},
		{"float_view_step", "Step", "Step value for the float"},
		{"float_view_default", "Default", "Default value"},
	} {
		props.Float(f.name, types.Label(f.label), types.Description(f.description),
			types.WithView(types.NewFieldView(types.Space(2))))
	}
	inputs.DefineProperty("float_props", props)

	var submitted floatProps
	if err := ctx.Params.Decode("float_props", &submitted); err != nil {
		return err
	}
	lo, hi, step, def := submitted.Min, submitted.Max, submitted.Step, submitted.Default

	values := map[string]any{}
	var literal []string
	for _, bound := range []struct {
		key   string
		value *float64
	}{{"min", lo}, {"max", hi}, {"step", step}} {
		if bound.value == nil {
			continue
		}
		values[bound.key] = *bound.value
		literal = append(literal, fmt.Sprintf("%q: %s", bound.key, formatFloat(*bound.value)))
	}

	component := strings.ToLower(view.name)
	componentProps := map[string]any{component: values}

	viewArgs := ""
	if len(values) > 0 {
		viewArgs = fmt.Sprintf("types.ComponentsProps(map[string]any{%q: map[string]any{%s}})",
			component, strings.Join(literal, ", "))
	}
	defaultCode := ""
	var defValue any
	if def != nil {
		defValue = *def
		defaultCode = fmt.Sprintf("\ttypes.Default(%s),\n", formatFloat(*def))
	}

	code := fmt.Sprintf(`inputs.Float(
	"my_float",
	types.Label("My float label"),
	types.Description("My float description"),
	types.WithView(%s(%s)),
%s)
`, view.code, viewArgs, defaultCode)

	inputs.Str(fmt.Sprintf("float_code_%s_%s_%s_%s_%s", view.name, keyPart(lo), keyPart(hi), keyPart(step), keyPart(def)),
		types.Label("Float Code"),
		types.Default(code),
		types.WithView(codeView()))

	previewHeader(inputs, "float_preview_header", "Float Preview", "Preview of the float you created above")

	inputs.Float("float_preview",
		types.Label("My float label"),
		types.Description("My float description"),
		types.WithView(view.build(types.ComponentsProps(componentProps))),
		types.Default(defValue))
	return nil
}

func messageCode(ctx *operator.ExecutionContext, inputs *types.Object, view viewOption) {
	inputs.Str("message_label", types.Label("Message Label"), types.Default("Message Label"))
	inputs.Str("message_description", types.Label("Message Description"), types.Default("Message Description"))

	label := ctx.Params.StringOr("message_label", "Message Label")
	description := ctx.Params.StringOr("message_description", "Message Description")
	kind := strings.ToLower(view.name)

	var code string
	switch view.name {
	case "Message":
		code = fmt.Sprintf("inputs.Message(\n\t\"message\",\n\t%q,\n\ttypes.Description(%q),\n)\n", label, description)
	case "Header":
		code = fmt.Sprintf("inputs.View(\n\t\"header\",\n\ttypes.NewHeader(%q, types.ViewDescription(%q), types.Divider()),\n)\n", label, description)
	default:
		code = fmt.Sprintf("inputs.View(\n\t%q,\n\ttypes.New%s(%q, types.ViewDescription(%q)),\n)\n", kind, view.name, label, description)
	}

	inputs.Str(fmt.Sprintf("message_code_%s_%s_%s", view.name, label, description),
		types.Label("Message Code"),
		types.Default(code),
		types.WithView(codeView()))

	previewHeader(inputs, "message_preview_header", "Message Preview", "Preview of the message you created above")

	name := fmt.Sprintf("%s_%s_%s", kind, label, description)
	switch view.name {
	case "Message":
		inputs.Message(name, label, types.Description(description))
	case "Success":
		inputs.View(name, types.NewSuccess(label, types.ViewDescription(description)))
	case "Warning":
		inputs.View(name, types.NewWarning(label, types.ViewDescription(description)))
	case "Error":
		inputs.View(name, types.NewError(label, types.ViewDescription(description)))
	case "Header":
		inputs.View(name, types.NewHeader(label, types.ViewDescription(description), types.Divider()))
	}
}
