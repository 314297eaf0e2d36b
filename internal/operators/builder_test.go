package operators

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

func TestBuildComponentViewType(t *testing.T) {
	op := NewBuildComponent()

	prop, err := op.ResolveInput(newContext(nil))
	require.NoError(t, err)
	assert.Equal(t, "Build a Plugin", prop.View.Label)
	assert.Equal(t, []string{"view_type_header", "view_type"}, prop.Object.Names())
	viewType := prop.Object.Property("view_type")
	assert.Equal(t, []string{"radio_group", "boolean", "float", "message"}, viewType.Values)
	assert.Equal(t, "radio_group", viewType.Default)

	_, err = op.ResolveInput(newContext(operator.Params{"view_type": "slider"}))
	assert.Error(t, err)

	result, err := op.Execute(newContext(nil))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestBuildComponentRadioGroup(t *testing.T) {
	op := NewBuildComponent()

	obj := resolve(t, op, operator.Params{"view_type": "radio_group"})
	options := obj.Property("radio_view_type")
	require.NotNil(t, options)
	assert.Equal(t, []string{"Dropdown", "Radio", "Tabs", "Autocomplete"}, options.Values)
	assert.Equal(t, "Dropdown", options.Default)
	assert.NotNil(t, obj.Property("radio_view_message"))

	code := obj.Property("radio_group_code_Dropdown_false_none_false")
	require.NotNil(t, code)
	assert.Equal(t, types.ComponentCode, code.View.Component)
	assert.Equal(t, "go", code.View.Language)
	assert.Contains(t, code.Default, "types.WithView(types.NewDropdownView()),")
	assert.NotContains(t, code.Default, "types.Default(")
	assert.NotNil(t, obj.Property("radio_groups_preview_none"))

	obj = resolve(t, op, operator.Params{
		"view_type":       "radio_group",
		"radio_view_type": "Tabs",
		"radio_props":     map[string]any{"has_default": true, "required": true},
	})
	code = obj.Property("radio_group_code_Tabs_true_aaa_true")
	require.NotNil(t, code)
	assert.Contains(t, code.Default, "\ttypes.Default(\"aaa\"),\n\ttypes.Required(true),\n")
	preview := obj.Property("radio_groups_preview_aaa")
	require.NotNil(t, preview)
	assert.Equal(t, types.ComponentTabs, preview.View.Component)
	assert.Equal(t, "aaa", preview.Default)
	assert.True(t, preview.Required)
	assert.Equal(t, radioChoices, preview.Values)

	obj = resolve(t, op, operator.Params{
		"view_type":   "radio_group",
		"radio_props": map[string]any{"has_default": "true", "required": ""},
	})
	assert.NotNil(t, obj.Property("radio_group_code_Dropdown_true_aaa_false"))
}

func TestBuildComponentBoolean(t *testing.T) {
	op := NewBuildComponent()

	obj := resolve(t, op, operator.Params{"view_type": "boolean", "boolean_view_type": "Switch"})
	assert.Nil(t, obj.Property("boolean_view_default"))
	code := obj.Property("boolean_code_Switch")
	require.NotNil(t, code)
	assert.Contains(t, code.Default, "types.NewSwitchView()")
	assert.Equal(t, types.ComponentSwitch, obj.Property("boolean_preview").View.Component)
	assert.Nil(t, obj.Property("boolean_preview").Default)

	obj = resolve(t, op, operator.Params{
		"view_type":                "boolean",
		"boolean_view_has_default": true,
		"boolean_view_default":     true,
	})
	assert.NotNil(t, obj.Property("boolean_view_default"))
	assert.Contains(t, obj.Property("boolean_code_Checkbox").Default, "types.Default(true)")
	assert.Equal(t, true, obj.Property("boolean_preview").Default)
}

func TestBuildComponentFloat(t *testing.T) {
	op := NewBuildComponent()

	obj := resolve(t, op, operator.Params{"view_type": "float"})
	props := obj.Property("float_props")
	require.NotNil(t, props)
	assert.Equal(t, []string{"float_view_min", "float_view_max", "float_view_step", "float_view_default"}, props.Object.Names())
	code := obj.Property("float_code_Slider_none_none_none_none")
	require.NotNil(t, code)
	assert.Contains(t, code.Default, "types.WithView(types.NewSliderView()),")

	obj = resolve(t, op, operator.Params{
		"view_type":       "float",
		"float_view_type": "Field",
		"float_props": map[string]any{
			"float_view_min":     0,
			"float_view_max":     10.5,
			"float_view_default": 2,
		},
	})
	code = obj.Property("float_code_Field_0_10.5_none_2")
	require.NotNil(t, code)
	assert.Contains(t, code.Default, `types.NewFieldView(types.ComponentsProps(map[string]any{"field": map[string]any{"min": 0, "max": 10.5}}))`)
	assert.Contains(t, code.Default, "types.Default(2),")

	preview := obj.Property("float_preview")
	assert.Equal(t, types.ComponentField, preview.View.Component)
	assert.Equal(t, map[string]any{"field": map[string]any{"min": float64(0), "max": 10.5}}, preview.View.ComponentsProps)
	assert.Equal(t, float64(2), preview.Default)

	obj = resolve(t, op, operator.Params{
		"view_type":       "float",
		"float_view_type": "Field",
		"float_props": map[string]any{
			"float_view_min":     "-5",
			"float_view_max":     "",
			"float_view_default": "1.5",
		},
	})
	code = obj.Property("float_code_Field_-5_none_none_1.5")
	require.NotNil(t, code)
	assert.Contains(t, code.Default, `map[string]any{"field": map[string]any{"min": -5}}`)
	assert.Equal(t, 1.5, obj.Property("float_preview").Default)

	_, err := op.ResolveInput(newContext(operator.Params{
		"view_type":   "float",
		"float_props": map[string]any{"float_view_min": "low"},
	}))
	assert.ErrorContains(t, err, "float_props")
}

func TestBuildComponentMessage(t *testing.T) {
	op := NewBuildComponent()

	tests := []struct {
		view      string
		component string
		snippet   string
	}{
		{"Message", types.ComponentMessage, `inputs.Message(`},
		{"Success", types.ComponentSuccess, `types.NewSuccess("Hi", types.ViewDescription("There"))`},
		{"Warning", types.ComponentWarning, `types.NewWarning("Hi", types.ViewDescription("There"))`},
		{"Error", types.ComponentError, `types.NewError("Hi", types.ViewDescription("There"))`},
		{"Header", types.ComponentHeader, `types.NewHeader("Hi", types.ViewDescription("There"), types.Divider())`},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			obj := resolve(t, op, operator.Params{
				"view_type":           "message",
				"message_view_type":   tt.view,
				"message_label":       "Hi",
				"message_description": "There",
			})
			code := obj.Property("message_code_" + tt.view + "_Hi_There")
			require.NotNil(t, code)
			assert.Contains(t, code.Default, tt.snippet)

			preview := obj.Property(strings.ToLower(tt.view) + "_Hi_There")
			require.NotNil(t, preview)
			assert.Equal(t, tt.component, preview.View.Component)
			assert.Equal(t, "Hi", preview.View.Label)
			assert.Equal(t, "There", preview.View.Description)
		})
	}

	obj := resolve(t, op, operator.Params{"view_type": "message"})
	assert.NotNil(t, obj.Property("message_code_Message_Message Label_Message Description"))
}

func TestBuildOperatorSkeletonTabs(t *testing.T) {
	op := NewBuildOperatorSkeleton(t.TempDir())

	tests := []struct {
		tab  string
		want []string
	}{
		{"", []string{"operator_skeleton_config_header", "operator_name", "operator_label", "operator_description",
			"config_bool_props", "config_icon_props", "operator_skeleton_placement_header", "operator_placement_has_placement"}},
		{skeletonTabs[1], []string{"operator_skeleton_io_header", "operator_input_has_input", "operator_output_has_output"}},
		{skeletonTabs[2], []string{"operator_skeleton_execution_header", "operator_execution_has_trigger",
			"operator_skeleton_delegation_header", "delegated_execution_choices"}},
		{skeletonTabs[3], []string{"operator_skeleton_view_code_header", "operator_skeleton_view_code"}},
		{skeletonTabs[4], []string{"create_plugin_header", "directory", "plugin_subdirectory", "plugin_name", "plugin_description"}},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			params := operator.Params{}
			if tt.tab != "" {
				params["operator_skeleton_tab"] = tt.tab
			}
			obj := resolve(t, op, params)
			assert.Equal(t, append([]string{"operator_skeleton_tab"}, tt.want...), obj.Names())
		})
	}
}

func TestBuildOperatorSkeletonConditionalInputs(t *testing.T) {
	op := NewBuildOperatorSkeleton("")

	obj := resolve(t, op, operator.Params{"operator_placement_has_placement": true})
	placement := obj.Property("operator_placement")
	require.NotNil(t, placement)
	assert.Equal(t, []string{"SAMPLES-GRID-ACTIONS", "SAMPLES-GRID-SECONDARY-ACTIONS", "SAMPLES-VIEWER-ACTIONS"}, placement.Values)
	assert.NotNil(t, obj.Property("placement_prompt"))

	obj = resolve(t, op, operator.Params{
		"operator_skeleton_tab":          skeletonTabs[2],
		"operator_execution_has_trigger": true,
	})
	assert.NotNil(t, obj.Property("operator_execution_trigger"))
	assert.Nil(t, obj.Property("operator_execution_trigger_panel"))

	obj = resolve(t, op, operator.Params{
		"operator_skeleton_tab":          skeletonTabs[2],
		"operator_execution_has_trigger": true,
		"operator_execution_trigger":     triggerOpenPanel,
	})
	assert.Equal(t, panelChoices, obj.Property("operator_execution_trigger_panel").Values)
	assert.Equal(t, layoutChoices, obj.Property("operator_execution_trigger_layout").Values)

	obj = resolve(t, op, operator.Params{"operator_skeleton_tab": skeletonTabs[4], "operator_name": "count_things"})
	assert.Equal(t, "count_things", obj.Property("plugin_subdirectory").Default)
	dir := obj.Property("directory").View
	assert.True(t, dir.ChooseDir)
	assert.Equal(t, "Accept", dir.ChooseButtonLabel)
}

func TestTypeName(t *testing.T) {
	tests := map[string]string{
		"my_operator":     "MyOperator",
		"count_THINGS":    "CountThings",
		"export-to-disk":  "ExportToDisk",
		"9lives":          "Op9lives",
		"":                "Op",
		"already_Camel_2": "AlreadyCamel2",
	}
	for in, want := range tests {
		assert.Equal(t, want, typeName(in), in)
	}
}

func parseSource(t *testing.T, src string) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "main.go", src, parser.AllErrors)
	require.NoError(t, err, src)
}

func TestGenerateOperatorSourceDefaults(t *testing.T) {
	src, err := GenerateOperatorSource(operator.Params{})
	require.NoError(t, err)
	parseSource(t, src)

	assert.Contains(t, src, "type MyOperator struct{}")
	assert.Contains(t, src, `Name:        "my_operator",`)
	assert.Contains(t, src, `Icon:        "/path/to/icon.svg",`)
	assert.Contains(t, src, "return nil, nil")
	assert.Contains(t, src, "grpc.ListenAndServe(ctx, *port, reg, slog.Default())")
	assert.NotContains(t, src, "Dynamic")
	assert.NotContains(t, src, "executionMode")
	assert.NotContains(t, src, "ResolveDelegation")
	assert.NotContains(t, src, "ResolveOutput")
	assert.NotContains(t, src, "ResolvePlacement")
}

func TestGenerateOperatorSourceVariants(t *testing.T) {
	tests := []struct {
		name     string
		params   operator.Params
		contains []string
		excludes []string
	}{
		{
			name: "config flags",
			params: operator.Params{
				"operator_name":        "count_things",
				"operator_label":       `Count "things"`,
				"config_bool_props":    map[string]any{"operator_dynamic": true, "unlisted": true},
				"config_icon_props":    map[string]any{"config_icon": false, "config_dark_icon": true},
				"operator_description": "Counts",
			},
			contains: []string{"type CountThings struct{}", "Dynamic:", "Unlisted:", `DarkIcon:`, `"Count \"things\""`},
			excludes: []string{"OnStartup", `Icon:        "/path/to/icon.svg"`},
		},
		{
			name: "config flags as strings",
			params: operator.Params{
				"config_bool_props": map[string]any{"on_startup": "true", "unlisted": ""},
				"config_icon_props": map[string]any{"config_icon": "", "config_light_icon": "1"},
			},
			contains: []string{"OnStartup:", `"/path/to/icon.svg",`, `"/path/to/light_icon.svg",`},
			excludes: []string{"Unlisted:"},
		},
		{
			name:     "inputs",
			params:   operator.Params{"operator_input_has_input": true},
			contains: []string{"inputs := types.NewObject()", "// Add your inputs here."},
			excludes: []string{"executionMode"},
		},
		{
			name:     "inputs with user choice",
			params:   operator.Params{"operator_input_has_input": true, "delegated_execution_choices": "User Choice"},
			contains: []string{"func executionMode(", "executionMode(ctx, inputs)", "// Add your inputs here.", `return ctx.Params.Bool("delegate")`},
		},
		{
			name:     "user choice only",
			params:   operator.Params{"delegated_execution_choices": "User Choice"},
			contains: []string{"executionMode(ctx, inputs)"},
			excludes: []string{"// Add your inputs here."},
		},
		{
			name:     "always delegated",
			params:   operator.Params{"delegated_execution_choices": "True"},
			contains: []string{"ResolveDelegation(ctx *operator.ExecutionContext) bool {\n\treturn true\n}"},
		},
		{
			name:     "reload samples",
			params:   operator.Params{"operator_execution_has_trigger": true},
			contains: []string{`ctx.Trigger("reload_samples", nil)`},
		},
		{
			name:     "reload dataset",
			params:   operator.Params{"operator_execution_has_trigger": true, "operator_execution_trigger": "Reload Dataset"},
			contains: []string{`ctx.Trigger("reload_dataset", nil)`},
		},
		{
			name:     "set view",
			params:   operator.Params{"operator_execution_has_trigger": true, "operator_execution_trigger": "Set View"},
			contains: []string{`ctx.Trigger("set_view", map[string]any{"view": view})`},
		},
		{
			name: "open panel",
			params: operator.Params{
				"operator_execution_has_trigger":    true,
				"operator_execution_trigger":        "Open A Panel",
				"operator_execution_trigger_panel":  "Histograms",
				"operator_execution_trigger_layout": "Vertical",
			},
			contains: []string{`ctx.Trigger("open_panel"`, `"name":     "Histograms",`, `"layout":   "Vertical",`},
		},
		{
			name:     "trigger ignored when disabled",
			params:   operator.Params{"operator_execution_trigger": "Reload Dataset"},
			excludes: []string{"ctx.Trigger"},
		},
		{
			name:     "output",
			params:   operator.Params{"operator_output_has_output": true},
			contains: []string{"ResolveOutput(", "outputs := types.NewObject()"},
		},
		{
			name: "placement",
			params: operator.Params{
				"operator_placement_has_placement": true,
				"operator_placement":               "SAMPLES-VIEWER-ACTIONS",
				"placement_label":                  "Count",
				"placement_prompt":                 true,
			},
			contains: []string{"Place:  types.PlaceSamplesViewerActions,", `Label:  "Count",`, `Icon:   "/path/to/icon.svg",`, "Prompt: true,"},
		},
		{
			name: "placement without icon",
			params: operator.Params{
				"operator_placement_has_placement": true,
				"placement_has_icon":               false,
			},
			contains: []string{"types.PlaceSamplesGridActions", "Prompt: false,"},
			excludes: []string{`Icon:   "`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := GenerateOperatorSource(tt.params)
			require.NoError(t, err)
			parseSource(t, src)
			for _, s := range tt.contains {
				assert.Contains(t, src, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, src, s)
			}
		})
	}
}

func TestGenerateOperatorSourceRejectsBadFlags(t *testing.T) {
	_, err := GenerateOperatorSource(operator.Params{
		"config_bool_props": map[string]any{"unlisted": "sometimes"},
	})
	assert.ErrorContains(t, err, "config_bool_props")
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest(operator.Params{
		"plugin_name":        "@ada/counter",
		"plugin_description": "Counts things",
		"operator_name":      "count_things",
	})
	require.NoError(t, err)

	m, err := plugin.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "@ada/counter", m.Name)
	assert.Equal(t, "0.0.1", m.Version)
	assert.Equal(t, "Counts things", m.Description)
	assert.Equal(t, []string{"count_things"}, m.Operators)
	require.NotNil(t, m.Server)
	assert.Equal(t, plugin.ServerTypeCommand, m.Server.Type)
	assert.Equal(t, "go run . -port {port}", m.Server.Command)
}

func TestBuildOperatorSkeletonExecute(t *testing.T) {
	pluginsDir := t.TempDir()
	op := NewBuildOperatorSkeleton(pluginsDir)

	result, err := op.Execute(newContext(operator.Params{
		"operator_name":       "count_things",
		"plugin_subdirectory": "counter",
		"plugin_name":         "@ada/counter",
	}))
	require.NoError(t, err)
	target := filepath.Join(pluginsDir, "counter")
	assert.Equal(t, target, result["directory"])

	src, err := os.ReadFile(filepath.Join(target, SourceFile))
	require.NoError(t, err)
	assert.Contains(t, string(src), "type CountThings struct{}")

	m, err := plugin.LoadManifest(filepath.Join(target, plugin.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "@ada/counter", m.Name)

	chosen := t.TempDir()
	_, err = op.Execute(newContext(operator.Params{
		"directory": map[string]any{"absolute_path": chosen},
	}))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(chosen, "my_operator", SourceFile))
	assert.FileExists(t, filepath.Join(chosen, "my_operator", plugin.ManifestFile))

	_, err = NewBuildOperatorSkeleton("").Execute(newContext(nil))
	assert.Error(t, err)
}
