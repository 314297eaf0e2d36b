package operators

import (
	"fmt"
	"sort"

	"github.com/example/pluginhost/internal/requirements"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
)

// Tabs of the manage form.
const (
	TabEnablement   = "ENABLEMENT"
	TabRequirements = "REQUIREMENTS"
)

// ManagePlugins toggles plugin enablement and reports plugin requirements.
type ManagePlugins struct {
	store   PluginStore
	checker *requirements.Checker
}

// NewManagePlugins returns the manage_plugins operator.
func NewManagePlugins(store PluginStore, checker *requirements.Checker) *ManagePlugins {
	if checker == nil {
		checker = &requirements.Checker{}
	}
	return &ManagePlugins{store: store, checker: checker}
}

func (o *ManagePlugins) Config() operator.Config {
	return operator.Config{
		Name:      "manage_plugins",
		Label:     "Manage plugins",
		LightIcon: lightIcon,
		DarkIcon:  darkIcon,
		Dynamic:   true,
	}
}

func (o *ManagePlugins) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()

	tabs := types.NewTabsView().
		AddChoice(TabEnablement, types.ChoiceLabel("Enablement")).
		AddChoice(TabRequirements, types.ChoiceLabel("Requirements"))
	inputs.Enum("tab", tabs.Values(), types.Default(TabEnablement), types.WithView(tabs))

	var err error
	switch ctx.Params.StringOr("tab", TabEnablement) {
	case TabEnablement:
		err = o.enablementInputs(ctx, inputs)
	case TabRequirements:
		err = o.requirementsInputs(ctx, inputs)
	}
	if err != nil {
		return nil, err
	}
	return types.NewProperty(inputs, types.WithView(types.NewView(types.ViewLabel("Manage plugins")))), nil
}

func markdownCell(obj *types.Object, name, text string, space float64) {
	obj.Str(name, types.Default(text),
		types.WithView(types.NewMarkdownView(types.ReadOnly(), types.Space(space))))
}

// enablementRow is one submitted row of the enablement tab.
type enablementRow struct {
	Name    string `param:"name"`
	Enabled *bool  `param:"enabled"`
}

func enablementKey(i int) string {
	return fmt.Sprintf("enablement%d", i)
}

func (o *ManagePlugins) enabledSet(ctx *operator.ExecutionContext) (map[string]bool, error) {
	names, err := o.store.EnabledPlugins(ctx.Context())
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

func (o *ManagePlugins) enablementInputs(ctx *operator.ExecutionContext, inputs *types.Object) error {
	header := types.NewObject()
	markdownCell(header, "name", "**Name**", 3)
	markdownCell(header, "description", "**Description**", 7)
	markdownCell(header, "enabled", "**Enabled**", 2)
	inputs.DefineProperty("enablement_header", header)

	enabled, err := o.enabledSet(ctx)
	if err != nil {
		return err
	}
	plugins, err := o.store.ListPlugins(ctx.Context())
	if err != nil {
		return err
	}

	edited := 0
	for i, p := range plugins {
		key := enablementKey(i + 1)
		actual := enabled[p.Name]
		var sent enablementRow
		if err := ctx.Params.Decode(key, &sent); err != nil {
			return err
		}
		submitted := actual
		if sent.Enabled != nil {
			submitted = *sent.Enabled
		}

		label := ""
		if submitted != actual {
			edited++
			label = "(edited)"
		}

		row := types.NewObject()
		markdownCell(row, "markdown_name", fmt.Sprintf("[%s](%s)", p.Name, p.URL), 3)
		markdownCell(row, "description", p.Description, 6.5)
		row.Str("name", types.Default(p.Name),
			types.WithView(types.NewHiddenView(types.ReadOnly(), types.Space(0.5))))
		row.Bool("enabled", types.Label(label), types.Default(actual),
			types.WithView(types.NewSwitchView(types.Space(2))))
		inputs.DefineProperty(key, row)
	}

	if edited > 0 {
		inputs.View("enablement_status",
			types.NewNotice(fmt.Sprintf("You are about to change the enablement of %d plugins", edited)))
		return nil
	}
	status := inputs.View("enablement_status", types.NewNotice("You have not made any changes"))
	status.Invalid = true
	return nil
}

func (o *ManagePlugins) requirementsInputs(ctx *operator.ExecutionContext, inputs *types.Object) error {
	plugins, err := o.store.ListPlugins(ctx.Context())
	if err != nil {
		return err
	}
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	choices := types.NewDropdown()
	for _, name := range names {
		choices.AddChoice(name, types.ChoiceLabel(name))
	}
	inputs.Enum("requirements_name", choices.Values(),
		types.Required(true),
		types.Label("Plugin"),
		types.Description("Choose a plugin whose requirements you want to check"),
		types.WithView(choices))

	name := ctx.Params.String("requirements_name")
	if name == "" {
		return nil
	}

	rows, err := o.checkRequirements(ctx, name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		inputs.View("requirements_status", types.NewNotice("This plugin has no package requirements"))
		return nil
	}

	header := types.NewObject()
	markdownCell(header, "requirements_requirement", "**Requirement**", 5)
	markdownCell(header, "requirements_version", "**Installed version**", 5)
	markdownCell(header, "requirements_satisfied", "**Satisfied**", 2)
	inputs.DefineProperty("requirements_header", header)

	satisfied := 0
	for i, r := range rows {
		if r.Satisfied {
			satisfied++
		}
		row := types.NewObject()
		markdownCell(row, "requirement", r.Requirement, 5)
		markdownCell(row, "version", r.Version, 5)
		row.Bool("satisfied", types.Default(r.Satisfied),
			types.WithView(types.NewCheckboxView(types.ReadOnly(), types.Space(2))))
		inputs.DefineProperty(fmt.Sprintf("%s_requirements%d", name, i+1), row)
	}

	var view *types.View
	if satisfied == len(rows) {
		view = types.NewNotice("All package requirements are satisfied")
	} else {
		view = types.NewWarning(fmt.Sprintf("Only %d/%d package requirements are satisfied", satisfied, len(rows)))
	}
	status := inputs.View("requirements_status", view)
	status.Invalid = true
	return nil
}

// checkRequirements checks the host requirement of a plugin followed by its
// package requirements.
func (o *ManagePlugins) checkRequirements(ctx *operator.ExecutionContext, name string) ([]requirements.Result, error) {
	p, err := o.store.GetPlugin(ctx.Context(), name)
	if err != nil {
		return nil, err
	}

	var rows []requirements.Result
	if p.HostRequirement != "" {
		rows = append(rows, o.checker.CheckHost(p.HostRequirement))
	}

	reqs, err := o.store.LoadRequirements(ctx.Context(), name)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		rows = append(rows, o.checker.CheckPackage(req))
	}
	return rows, nil
}

func (o *ManagePlugins) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	if ctx.Params.StringOr("tab", TabEnablement) != TabEnablement {
		return nil, nil
	}

	enabled, err := o.enabledSet(ctx)
	if err != nil {
		return nil, err
	}

	var changed, unchanged []string
	for i := 1; ctx.Params.Has(enablementKey(i)); i++ {
		var row enablementRow
		if err := ctx.Params.Decode(enablementKey(i), &row); err != nil {
			return nil, err
		}
		name := row.Name
		if name == "" {
			continue
		}
		want := enabled[name]
		if row.Enabled != nil {
			want = *row.Enabled
		}
		if want == enabled[name] {
			unchanged = append(unchanged, name)
			continue
		}

		if want {
			err = o.store.EnablePlugin(ctx.Context(), name)
		} else {
			err = o.store.DisablePlugin(ctx.Context(), name)
		}
		if err != nil {
			return nil, err
		}
		changed = append(changed, name)
	}

	ctx.Logger.Info("updated plugin enablement", "changed", changed)
	return operator.Result{"changed": changed, "unchanged": len(unchanged)}, nil
}
