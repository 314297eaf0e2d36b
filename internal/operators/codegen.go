package operators

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

// Delegation choices of the skeleton wizard.
const (
	delegationFalse      = "False"
	delegationTrue       = "True"
	delegationUserChoice = "User Choice"
)

// Trigger choices of the skeleton wizard.
const (
	triggerReloadSamples = "Reload Samples"
	triggerReloadDataset = "Reload Dataset"
	triggerSetView       = "Set View"
	triggerOpenPanel     = "Open A Panel"
)

var (
	triggerChoices    = []string{triggerReloadSamples, triggerReloadDataset, triggerSetView, triggerOpenPanel}
	panelChoices      = []string{"Embeddings", "Histograms"}
	layoutChoices     = []string{"Horizontal", "Vertical"}
	delegationChoices = []string{delegationFalse, delegationTrue, delegationUserChoice}
)

var placeIdentifiers = map[types.Place]string{
	types.PlaceSamplesGridActions:          "types.PlaceSamplesGridActions",
	types.PlaceSamplesGridSecondaryActions: "types.PlaceSamplesGridSecondaryActions",
	types.PlaceSamplesViewerActions:        "types.PlaceSamplesViewerActions",
}

const defaultOperatorName = "my_operator"

// skeleton is the operator described by the wizard parameters.
type skeleton struct {
	TypeName    string
	Name        string
	Label       string
	Description string

	Dynamic            bool
	ExecuteAsGenerator bool
	Unlisted           bool
	OnStartup          bool
	Icon               bool
	LightIcon          bool
	DarkIcon           bool

	HasInput   bool
	HasOutput  bool
	Delegation string

	Trigger string
	Panel   string
	Layout  string

	HasPlacement    bool
	Place           string
	PlacementLabel  string
	PlacementIcon   string
	PlacementPrompt bool
}

// configFlags is the submitted config_bool_props object.
type configFlags struct {
	Dynamic            bool `param:"operator_dynamic"`
	ExecuteAsGenerator bool `param:"execute_as_generator"`
	Unlisted           bool `param:"unlisted"`
	OnStartup          bool `param:"on_startup"`
}

// configIcons is the submitted config_icon_props object. Icon defaults to
// true, matching the form.
type configIcons struct {
	Icon      *bool `param:"config_icon"`
	LightIcon bool  `param:"config_light_icon"`
	DarkIcon  bool  `param:"config_dark_icon"`
}

func newSkeleton(p operator.Params) (skeleton, error) {
	s := skeleton{
		Name:        p.StringOr("operator_name", defaultOperatorName),
		Label:       p.StringOr("operator_label", "My Operator"),
		Description: p.StringOr("operator_description", "My Operator Description"),
		HasInput:    p.Bool("operator_input_has_input"),
		HasOutput:   p.Bool("operator_output_has_output"),
		Delegation:  p.StringOr("delegated_execution_choices", delegationFalse),
	}
	s.TypeName = typeName(s.Name)

	var flags configFlags
	if err := p.Decode("config_bool_props", &flags); err != nil {
		return s, err
	}
	s.Dynamic = flags.Dynamic
	s.ExecuteAsGenerator = flags.ExecuteAsGenerator
	s.Unlisted = flags.Unlisted
	s.OnStartup = flags.OnStartup

	var icons configIcons
	if err := p.Decode("config_icon_props", &icons); err != nil {
		return s, err
	}
	s.Icon = icons.Icon == nil || *icons.Icon
	s.LightIcon = icons.LightIcon
	s.DarkIcon = icons.DarkIcon

	if p.Bool("operator_execution_has_trigger") {
		s.Trigger = p.StringOr("operator_execution_trigger", triggerReloadSamples)
		s.Panel = p.StringOr("operator_execution_trigger_panel", panelChoices[0])
		s.Layout = p.StringOr("operator_execution_trigger_layout", layoutChoices[0])
	}

	if p.Bool("operator_placement_has_placement") {
		s.HasPlacement = true
		place := types.Place(p.StringOr("operator_placement", string(types.PlaceSamplesGridActions)))
		if ident, ok := placeIdentifiers[place]; ok {
			s.Place = ident
		} else {
			s.Place = fmt.Sprintf("types.Place(%q)", place)
		}
		s.PlacementLabel = p.StringOr("placement_label", "My Placement Label")
		if p.BoolOr("placement_has_icon", true) {
			s.PlacementIcon = p.StringOr("placement_icon", "/path/to/icon.svg")
		}
		s.PlacementPrompt = p.Bool("placement_prompt")
	}
	return s, nil
}

// typeName converts an operator name such as "my_operator" to an exported
// Go identifier ("MyOperator").
func typeName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	out := b.String()
	if out == "" || !unicode.IsLetter([]rune(out)[0]) {
		out = "Op" + out
	}
	return out
}

func (s skeleton) UserChoice() bool { return s.Delegation == delegationUserChoice }

var skeletonTemplate = template.Must(template.New("main.go").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/example/pluginhost/pkg/grpc"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)
{{if .UserChoice}}
func executionMode(ctx *operator.ExecutionContext, inputs *types.Object) {
	delegate := ctx.Params.Bool("delegate")

	description := "Check this box to delegate execution of this task"
	if delegate {
		description = "Uncheck this box to execute the operation immediately"
	}

	inputs.Bool(
		"delegate",
		types.Default(false),
		types.Required(true),
		types.Label("Delegate execution?"),
		types.Description(description),
		types.WithView(types.NewCheckboxView()),
	)

	if delegate {
		inputs.View("notice", types.NewNotice(
			"You've chosen delegated execution. Note that you must have a delegated "+
				"operation service running in order for this task to be processed.",
		))
	}
}
{{end}}
type {{.TypeName}} struct{}

func (o *{{.TypeName}}) Config() operator.Config {
	return operator.Config{
		Name: {{quote .Name}},
		Label: {{quote .Label}},
		Description: {{quote .Description}},
{{- if .Dynamic}}
		Dynamic: true,
{{- end}}
{{- if .ExecuteAsGenerator}}
		ExecuteAsGenerator: true,
{{- end}}
{{- if .Unlisted}}
		Unlisted: true,
{{- end}}
{{- if .OnStartup}}
		OnStartup: true,
{{- end}}
{{- if .Icon}}
		Icon: "/path/to/icon.svg",
{{- end}}
{{- if .LightIcon}}
		LightIcon: "/path/to/light_icon.svg",
{{- end}}
{{- if .DarkIcon}}
		DarkIcon: "/path/to/dark_icon.svg",
{{- end}}
	}
}

func (o *{{.TypeName}}) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
{{- if or .HasInput .UserChoice}}
	inputs := types.NewObject()
{{if .HasInput}}
	// Add your inputs here.
{{end}}
{{- if .UserChoice}}
	executionMode(ctx, inputs)
{{- end}}
	return types.NewProperty(inputs), nil
{{- else}}
	return nil, nil
{{- end}}
}

func (o *{{.TypeName}}) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	// Your logic here.
{{if eq .Trigger "Reload Samples"}}
	if err := ctx.Trigger("reload_samples", nil); err != nil {
		return nil, err
	}
{{- else if eq .Trigger "Reload Dataset"}}
	if err := ctx.Trigger("reload_dataset", nil); err != nil {
		return nil, err
	}
{{- else if eq .Trigger "Set View"}}
	// Create your view here.
	view := map[string]any{}

	if err := ctx.Trigger("set_view", map[string]any{"view": view}); err != nil {
		return nil, err
	}
{{- else if eq .Trigger "Open A Panel"}}
	err := ctx.Trigger("open_panel", map[string]any{
		"name":     {{quote .Panel}},
		"isActive": true,
		"layout":   {{quote .Layout}},
	})
	if err != nil {
		return nil, err
	}
{{- end}}
	return operator.Result{}, nil
}
{{if eq .Delegation "True"}}
func (o *{{.TypeName}}) ResolveDelegation(ctx *operator.ExecutionContext) bool {
	return true
}
{{else if .UserChoice}}
func (o *{{.TypeName}}) ResolveDelegation(ctx *operator.ExecutionContext) bool {
	return ctx.Params.Bool("delegate")
}
{{end}}
{{- if .HasOutput}}
func (o *{{.TypeName}}) ResolveOutput(ctx *operator.ExecutionContext) (*types.Property, error) {
	outputs := types.NewObject()

	// Add your outputs here.

	return types.NewProperty(outputs), nil
}
{{end}}
{{- if .HasPlacement}}
func (o *{{.TypeName}}) ResolvePlacement(ctx *operator.ExecutionContext) *types.Placement {
	return &types.Placement{
		Place: {{.Place}},
		Label: {{quote .PlacementLabel}},
{{- if .PlacementIcon}}
		Icon: {{quote .PlacementIcon}},
{{- end}}
		Prompt: {{.PlacementPrompt}},
	}
}
{{end}}
func main() {
	port := flag.Int("port", 0, "port to serve operators on")
	flag.Parse()

	reg := operator.NewRegistry()
	if err := reg.Register(&{{.TypeName}}{}); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := grpc.ListenAndServe(ctx, *port, reg, slog.Default()); err != nil {
		log.Fatal(err)
	}
}
`))

// GenerateOperatorSource renders the Go source of the operator described by
// the wizard parameters. The result is gofmt-formatted when it parses.
func GenerateOperatorSource(p operator.Params) (string, error) {
	s, err := newSkeleton(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := skeletonTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("failed to render operator source: %w", err)
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.String(), nil
	}
	return string(formatted), nil
}

// GenerateManifest renders the plugin.yml of the generated plugin.
func GenerateManifest(p operator.Params) ([]byte, error) {
	name := p.StringOr("operator_name", defaultOperatorName)
	m := &plugin.Manifest{
		Name:        p.StringOr("plugin_name", "@github_username/plugin_name"),
		Version:     "0.0.1",
		Description: p.StringOr("plugin_description", "My Plugin Description"),
		Operators:   []string{name},
		Server: &plugin.ServerConfig{
			Type:    plugin.ServerTypeCommand,
			Command: "go run . -port {port}",
		},
	}
	data, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}
	return data, nil
}
