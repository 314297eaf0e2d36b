package operators

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

// Tabs of the install form.
const (
	TabGitHub    = "GITHUB"
	TabOfficial  = "OFFICIAL"
	TabCommunity = "COMMUNITY"
)

const ghRepoInstructions = `Provide a location to download the plugin(s) from, which can be:

-   A GitHub repo URL like ` + "`https://github.com/<user>/<repo>`" + `
-   A GitHub ref like
    ` + "`https://github.com/<user>/<repo>/tree/<branch>`" + ` or
    ` + "`https://github.com/<user>/<repo>/commit/<commit>`" + `
-   A GitHub ref string like ` + "`<user>/<repo>[/<ref>]`"

// hydrateWorkers bounds concurrent manifest fetches when computing updates.
const hydrateWorkers = 4

// InstallPlugin installs plugins from GitHub or the plugin zoo.
type InstallPlugin struct {
	store   PluginStore
	catalog Catalog
}

// NewInstallPlugin returns the install_plugin operator.
func NewInstallPlugin(store PluginStore, catalog Catalog) *InstallPlugin {
	return &InstallPlugin{store: store, catalog: catalog}
}

func (o *InstallPlugin) Config() operator.Config {
	return operator.Config{
		Name:      "install_plugin",
		Label:     "Install plugin",
		LightIcon: lightIcon,
		DarkIcon:  darkIcon,
		Dynamic:   true,
	}
}

func (o *InstallPlugin) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	if err := o.inputs(ctx, inputs); err != nil {
		return nil, err
	}
	return types.NewProperty(inputs, types.WithView(types.NewView(types.ViewLabel("Install plugin")))), nil
}

func (o *InstallPlugin) inputs(ctx *operator.ExecutionContext, inputs *types.Object) error {
	tabs := types.NewTabsView().
		AddChoice(TabGitHub, types.ChoiceLabel("GitHub")).
		AddChoice(TabOfficial, types.ChoiceLabel("Official")).
		AddChoice(TabCommunity, types.ChoiceLabel("Community"))
	inputs.Enum("tab", tabs.Values(), types.Default(TabGitHub), types.WithView(tabs))
	tab := ctx.Params.StringOr("tab", TabGitHub)

	var (
		names      []string
		candidates []plugin.Descriptor
	)

	if tab == TabGitHub {
		inputs.Str("gh_repo_instructions",
			types.Default(ghRepoInstructions),
			types.WithView(types.NewMarkdownView(types.ReadOnly())))
		inputs.Str("gh_repo", types.Required(true))

		ghRepo := ctx.Params.String("gh_repo")
		if ghRepo == "" {
			return nil
		}

		found, err := o.catalog.FindPlugins(ctx.Context(), ghRepo)
		if err != nil {
			ctx.Logger.Warn("plugin discovery failed", "repo", ghRepo, "error", err)
			prop := inputs.View("error", types.NewError(
				fmt.Sprintf("Failed to find plugins at %s", ghRepo),
				types.ViewDescription(err.Error())))
			prop.Invalid = true
			return nil
		}
		if len(found) == 0 {
			prop := inputs.View("warning", types.NewWarning(fmt.Sprintf("No plugins found at %s", ghRepo)))
			prop.Invalid = true
			return nil
		}

		if len(found) > 1 {
			choices := types.NewDropdown(types.Multiple())
			for _, d := range found {
				choices.AddChoice(d.Name, types.ChoiceLabel(d.Name), types.ChoiceDescription(d.Description))
			}
			inputs.List("plugin_names", types.KindString,
				types.Label("Plugins"),
				types.Description("An optional list of plugins to install. By default, all plugins are installed"),
				types.WithView(choices))
		}

		candidates = found
		names = ctx.Params.Strings("plugin_names")
		if len(names) == 0 {
			for _, d := range found {
				names = append(names, d.Name)
			}
		}
	} else {
		official, community, err := o.catalog.ZooPlugins(ctx.Context())
		if err != nil {
			ctx.Logger.Warn("zoo listing failed", "error", err)
			prop := inputs.View("error", types.NewError("Failed to retrieve zoo plugins",
				types.ViewDescription(err.Error())))
			prop.Invalid = true
			return nil
		}

		param, author := "community_plugin", "a community"
		candidates = community
		if tab == TabOfficial {
			param, author = "official_plugin", "an official"
			candidates = official
		}

		choices := types.NewDropdown()
		for _, d := range candidates {
			choices.AddChoice(d.Name, types.ChoiceLabel(d.Name), types.ChoiceDescription(d.Description))
		}
		inputs.Enum(param, choices.Values(),
			types.Required(true),
			types.Label("Plugin"),
			types.Description(fmt.Sprintf("Choose %s-authored plugin from the zoo to install", author)),
			types.WithView(choices))

		if chosen := ctx.Params.String(param); chosen != "" {
			names = []string{chosen}
		}
	}

	if len(names) == 0 {
		return nil
	}

	updates, err := o.updates(ctx, names, candidates)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	lines := []string{"You are about to update the following plugins:"}
	for _, u := range updates {
		lines = append(lines, fmt.Sprintf("- `%s`: `v%s` -> `v%s`", u.name, u.current, u.candidate))
	}
	inputs.Str(tab+"_"+strings.Join(names, "_")+"_update_str",
		types.Default(strings.Join(lines, "\n")),
		types.WithView(types.NewMarkdownView(types.ReadOnly())))
	inputs.View("update_notice", types.NewNotice("Are you sure you want to update these plugins?"))
	return nil
}

type pluginUpdate struct {
	name      string
	current   string
	candidate string
}

// updates returns the selected plugins that are already installed, sorted
// by name, with their installed and candidate versions.
func (o *InstallPlugin) updates(ctx *operator.ExecutionContext, names []string, candidates []plugin.Descriptor) ([]pluginUpdate, error) {
	installed, err := o.store.ListPlugins(ctx.Context())
	if err != nil {
		return nil, err
	}
	current := make(map[string]string, len(installed))
	for _, p := range installed {
		current[p.Name] = p.Version
	}

	selected := map[string]bool{}
	for _, name := range names {
		if _, ok := current[name]; ok {
			selected[name] = true
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	byName := map[string]plugin.Descriptor{}
	for _, d := range candidates {
		if selected[d.Name] {
			byName[d.Name] = d
		}
	}
	o.hydrate(ctx, byName)

	ordered := make([]string, 0, len(selected))
	for name := range selected {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	updates := make([]pluginUpdate, 0, len(ordered))
	for _, name := range ordered {
		updates = append(updates, pluginUpdate{
			name:      name,
			current:   current[name],
			candidate: byName[name].Version,
		})
	}
	return updates, nil
}

// hydrate fills in missing candidate versions from their manifests. Lookups
// run concurrently and failures leave the version empty.
func (o *InstallPlugin) hydrate(ctx *operator.ExecutionContext, byName map[string]plugin.Descriptor) {
	var pending []plugin.Descriptor
	for _, d := range byName {
		if d.Version == "" && d.URL != "" {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return
	}

	var mu sync.Mutex
	hydrated := make(map[string]plugin.Descriptor, len(pending))
	g, gctx := errgroup.WithContext(ctx.Context())
	g.SetLimit(hydrateWorkers)
	for _, d := range pending {
		g.Go(func() error {
			info, err := o.catalog.PluginInfo(gctx, d.URL)
			if err != nil {
				ctx.Logger.Debug("failed to fetch plugin info", "plugin", d.Name, "url", d.URL, "error", err)
				return nil
			}
			mu.Lock()
			hydrated[d.Name] = *info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for name, info := range hydrated {
		byName[name] = info
	}
}

func (o *InstallPlugin) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	var (
		ref   string
		names []string
	)

	switch tab := ctx.Params.StringOr("tab", TabGitHub); tab {
	case TabGitHub:
		ref = ctx.Params.String("gh_repo")
		if ref == "" {
			return nil, fmt.Errorf("gh_repo is required")
		}
		names = ctx.Params.Strings("plugin_names")
	case TabOfficial, TabCommunity:
		param := "community_plugin"
		if tab == TabOfficial {
			param = "official_plugin"
		}
		name := ctx.Params.String(param)
		if name == "" {
			return nil, fmt.Errorf("%s is required", param)
		}
		url, err := o.catalog.ZooPluginURL(ctx.Context(), name)
		if err != nil {
			return nil, err
		}
		ref = url
		names = []string{name}
	default:
		return nil, fmt.Errorf("unsupported tab %q", tab)
	}

	installed, err := o.store.DownloadPlugin(ctx.Context(), ref, names, true)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(installed))
	for _, p := range installed {
		out = append(out, p.Name)
	}
	ctx.Logger.Info("installed plugins", "ref", ref, "plugins", out)
	return operator.Result{"installed": out}, nil
}
