package operators

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

// SourceFile is the name of the generated operator source.
const SourceFile = "main.go"

var skeletonTabs = []string{
	"1️⃣ Config & Placement",
	"2️⃣ Input & Output",
	"3️⃣ Execution & Delegation",
	"4️⃣ Preview Code",
	"▶️ Create",
}

// BuildOperatorSkeleton walks the user through describing an operator and
// writes a runnable plugin containing it.
type BuildOperatorSkeleton struct {
	pluginsDir string
}

// NewBuildOperatorSkeleton returns the build_operator_skeleton operator.
// Plugins are created below pluginsDir unless the user picks a directory.
func NewBuildOperatorSkeleton(pluginsDir string) *BuildOperatorSkeleton {
	return &BuildOperatorSkeleton{pluginsDir: pluginsDir}
}

func (o *BuildOperatorSkeleton) Config() operator.Config {
	return operator.Config{
		Name:        "build_operator_skeleton",
		Label:       "Plugin Builder: create an operator!",
		Description: "Create an operator skeleton",
		Icon:        buildIcon,
		Dynamic:     true,
	}
}

func (o *BuildOperatorSkeleton) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	form := types.WithView(types.NewView(
		types.ViewLabel("Build an operator skeleton"),
		types.ViewDescription("Walk through the steps to create an operator skeleton")))

	tabs := types.NewTabsView()
	for _, tab := range skeletonTabs {
		tabs.AddChoice(tab, types.ChoiceLabel(tab))
	}
	inputs.Enum("operator_skeleton_tab", tabs.Values(),
		types.Label("Skeleton Creation"),
		types.Description("Walk through the steps to create an operator skeleton"),
		types.Default(skeletonTabs[0]),
		types.WithView(tabs))

	tab := ctx.Params.StringOr("operator_skeleton_tab", skeletonTabs[0])
	switch {
	case strings.Contains(tab, "Config"):
		configFlow(inputs)
		placementFlow(ctx, inputs)
	case strings.Contains(tab, "Input"):
		ioFlow(inputs)
	case strings.Contains(tab, "Execution"):
		executionFlow(ctx, inputs)
		delegationFlow(inputs)
	case strings.Contains(tab, "Code"):
		source, err := GenerateOperatorSource(ctx.Params)
		if err != nil {
			return nil, err
		}
		inputs.View("operator_skeleton_view_code_header", types.NewHeader("Preview Operator Skeleton", types.Divider()))
		inputs.Str("operator_skeleton_view_code",
			types.Label("Go Code"),
			types.Description("Preview of your `"+SourceFile+"` file"),
			types.Default(source),
			types.WithView(types.NewCodeView(types.Language("go"), types.ReadOnly())))
	default:
		createFlow(ctx, inputs)
	}
	return types.NewProperty(inputs, form), nil
}

func sectionHeader(inputs *types.Object, name, label, description string) {
	inputs.View(name, types.NewHeader(label, types.ViewDescription(description), types.Divider()))
}

func checkbox(obj *types.Object, name, label string, def bool, space float64) {
	obj.Bool(name, types.Label(label), types.Default(def),
		types.WithView(types.NewCheckboxView(types.Space(space))))
}

func configFlow(inputs *types.Object) {
	sectionHeader(inputs, "operator_skeleton_config_header", "Config", "Configure your operator")

	inputs.Str("operator_name",
		types.Label("Operator Name"),
		types.Description("The name of your operator"),
		types.Default(defaultOperatorName),
		types.Required(true))
	inputs.Str("operator_label",
		types.Label("Operator Label"),
		types.Description("The label of your operator"),
		types.Default("My Operator"))
	inputs.Str("operator_description",
		types.Label("Operator Description"),
		types.Description("The description of your operator"),
		types.Default("My Operator Description"))

	flags := types.NewObject()
	checkbox(flags, "operator_dynamic", "Dynamic?", false, 2)
	checkbox(flags, "execute_as_generator", "Execute as generator?", false, 3)
	checkbox(flags, "unlisted", "Unlisted?", false, 2)
	checkbox(flags, "on_startup", "On startup?", false, 2)

	icons := types.NewObject()
	checkbox(icons, "config_icon", "Icon?", true, 2)
	checkbox(icons, "config_light_icon", "Light icon?", false, 3)
	checkbox(icons, "config_dark_icon", "Dark icon?", false, 3)

	inputs.DefineProperty("config_bool_props", flags)
	inputs.DefineProperty("config_icon_props", icons)
}

func placementFlow(ctx *operator.ExecutionContext, inputs *types.Object) {
	sectionHeader(inputs, "operator_skeleton_placement_header", "Placement", "Configure your operator's placement")

	inputs.Bool("operator_placement_has_placement",
		types.Label("Has placement?"),
		types.Default(false),
		types.WithView(types.NewSwitchView()))
	if !ctx.Params.Bool("operator_placement_has_placement") {
		return
	}

	places := types.NewDropdownView()
	for _, place := range types.Places {
		places.AddChoice(string(place), types.ChoiceLabel(string(place)))
	}
	inputs.Enum("operator_placement", places.Values(),
		types.Label("Placement"),
		types.Default(string(types.Places[0])),
		types.WithView(places))
	inputs.Str("placement_label", types.Label("Placement Label"), types.Default("My Placement Label"))
	inputs.Bool("placement_has_icon", types.Label("Placement Icon?"), types.Default(true))
	inputs.Str("placement_icon", types.Label("Placement Icon"), types.Default("/path/to/icon.svg"))
	inputs.Bool("placement_prompt",
		types.Label("Placement Prompt?"),
		types.Description("If checked, the user will be prompted when the button is clicked"),
		types.Default(false))
}

func ioFlow(inputs *types.Object) {
	sectionHeader(inputs, "operator_skeleton_io_header", "Input", "Configure your operator's input and output")

	inputs.Bool("operator_input_has_input",
		types.Label("Has input?"),
		types.Default(false),
		types.WithView(types.NewSwitchView()))
	inputs.Bool("operator_output_has_output",
		types.Label("Has output?"),
		types.Default(false),
		types.WithView(types.NewSwitchView()))
}

func dropdownEnum(inputs *types.Object, name, label string, choices []string) {
	view := types.NewDropdownView()
	for _, c := range choices {
		view.AddChoice(c, types.ChoiceLabel(c))
	}
	inputs.Enum(name, view.Values(), types.Label(label), types.Default(choices[0]), types.WithView(view))
}

func executionFlow(ctx *operator.ExecutionContext, inputs *types.Object) {
	sectionHeader(inputs, "operator_skeleton_execution_header", "Execution", "Configure your operator's execution")

	inputs.Bool("operator_execution_has_trigger",
		types.Label("Has trigger?"),
		types.Description("Check this if you want the execution of your operator to trigger on a specific event"),
		types.Default(false),
		types.WithView(types.NewCheckboxView()))
	if !ctx.Params.Bool("operator_execution_has_trigger") {
		return
	}

	inputs.View("header", types.NewHeader("Trigger Details",
		types.ViewDescription("You can trigger any operator! Here are some common choices:")))
	dropdownEnum(inputs, "operator_execution_trigger", "Trigger type", triggerChoices)

	if ctx.Params.StringOr("operator_execution_trigger", triggerChoices[0]) == triggerOpenPanel {
		dropdownEnum(inputs, "operator_execution_trigger_panel", "Panel type", panelChoices)
		dropdownEnum(inputs, "operator_execution_trigger_layout", "Layout type", layoutChoices)
	}
}

func delegationFlow(inputs *types.Object) {
	sectionHeader(inputs, "operator_skeleton_delegation_header", "Delegation", "Configure your operator's delegation")

	choices := types.NewRadioGroup()
	for _, c := range delegationChoices {
		choices.AddChoice(c, types.ChoiceLabel(c))
	}
	inputs.Enum("delegated_execution_choices", choices.Values(),
		types.Label("Delegate execution?"),
		types.Default(delegationFalse),
		types.WithView(types.NewRadioView()))
}

func createFlow(ctx *operator.ExecutionContext, inputs *types.Object) {
	inputs.View("create_plugin_header", types.NewHeader("Create Plugin Template", types.Divider()))

	inputs.File("directory",
		types.Label("Directory"),
		types.Description("Choose a directory"),
		types.WithView(types.NewFileExplorerView(
			types.ChooseDir(),
			types.ButtonLabel("Choose a directory in which to create your plugin"),
			types.ChooseButtonLabel("Accept"))))
	inputs.Str("plugin_subdirectory",
		types.Label("Directory to Create"),
		types.Default(ctx.Params.StringOr("operator_name", defaultOperatorName)))
	inputs.Str("plugin_name",
		types.Label("Plugin Name"),
		types.Description("The name of your plugin. Use the format @github_username/plugin_name"),
		types.Default("@github_username/plugin_name"),
		types.Required(true))
	inputs.Str("plugin_description",
		types.Label("Plugin Description"),
		types.Description("The description of your plugin"),
		types.Default("My Plugin Description"),
		types.Required(true))
}

func (o *BuildOperatorSkeleton) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	dir := ctx.Params.Map("directory").String("absolute_path")
	if dir == "" {
		dir = o.pluginsDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no directory chosen and no plugins directory configured")
	}

	subdir := ctx.Params.StringOr("plugin_subdirectory", ctx.Params.StringOr("operator_name", defaultOperatorName))
	target := filepath.Join(dir, subdir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plugin directory: %w", err)
	}

	source, err := GenerateOperatorSource(ctx.Params)
	if err != nil {
		return nil, err
	}
	manifest, err := GenerateManifest(ctx.Params)
	if err != nil {
		return nil, err
	}

	sourcePath := filepath.Join(target, SourceFile)
	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", SourceFile, err)
	}
	manifestPath := filepath.Join(target, plugin.ManifestFile)
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", plugin.ManifestFile, err)
	}

	ctx.Logger.Info("created operator skeleton", "dir", target)
	return operator.Result{"directory": target, "files": []string{sourcePath, manifestPath}}, nil
}
