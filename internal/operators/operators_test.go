package operators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pluginhost/internal/catalog"
	"github.com/example/pluginhost/internal/requirements"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

type download struct {
	ref       string
	names     []string
	overwrite bool
}

type fakeStore struct {
	mu           sync.Mutex
	plugins      []plugin.Plugin
	requirements map[string][]string
	downloads    []download
	err          error
}

func (s *fakeStore) ListPlugins(ctx context.Context) ([]plugin.Plugin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]plugin.Plugin, len(s.plugins))
	copy(out, s.plugins)
	return out, nil
}

func (s *fakeStore) GetPlugin(ctx context.Context, name string) (*plugin.Plugin, error) {
	plugins, err := s.ListPlugins(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plugins {
		if plugins[i].Name == name {
			return &plugins[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", plugin.ErrPluginNotFound, name)
}

func (s *fakeStore) EnabledPlugins(ctx context.Context) ([]string, error) {
	plugins, err := s.ListPlugins(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, p := range plugins {
		if p.Enabled {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (s *fakeStore) setEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.plugins {
		if s.plugins[i].Name == name {
			s.plugins[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", plugin.ErrPluginNotFound, name)
}

func (s *fakeStore) EnablePlugin(ctx context.Context, name string) error {
	return s.setEnabled(name, true)
}

func (s *fakeStore) DisablePlugin(ctx context.Context, name string) error {
	return s.setEnabled(name, false)
}

func (s *fakeStore) LoadRequirements(ctx context.Context, name string) ([]string, error) {
	return s.requirements[name], nil
}

func (s *fakeStore) DownloadPlugin(ctx context.Context, ref string, names []string, overwrite bool) ([]plugin.Plugin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads = append(s.downloads, download{ref: ref, names: names, overwrite: overwrite})
	var out []plugin.Plugin
	for _, name := range names {
		out = append(out, plugin.Plugin{Name: name})
	}
	return out, nil
}

type fakeCatalog struct {
	found     map[string][]plugin.Descriptor
	findErr   error
	official  []plugin.Descriptor
	community []plugin.Descriptor
	zooErr    error
	info      map[string]plugin.Descriptor
	delay     time.Duration

	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (c *fakeCatalog) FindPlugins(ctx context.Context, ref string) ([]plugin.Descriptor, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.found[ref], nil
}

func (c *fakeCatalog) ZooPlugins(ctx context.Context) ([]plugin.Descriptor, []plugin.Descriptor, error) {
	if c.zooErr != nil {
		return nil, nil, c.zooErr
	}
	return c.official, c.community, nil
}

func (c *fakeCatalog) PluginInfo(ctx context.Context, location string) (*plugin.Descriptor, error) {
	c.calls.Add(1)
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(c.delay)

	d, ok := c.info[location]
	if !ok {
		return nil, errors.New("manifest not found")
	}
	return &d, nil
}

func (c *fakeCatalog) ZooPluginURL(ctx context.Context, name string) (string, error) {
	for _, d := range append(append([]plugin.Descriptor{}, c.official...), c.community...) {
		if d.Name == name {
			return d.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", catalog.ErrZooPluginNotFound, name)
}

func newContext(params operator.Params) *operator.ExecutionContext {
	return operator.NewExecutionContext(context.Background(), params)
}

func resolve(t *testing.T, op operator.Operator, params operator.Params) *types.Object {
	t.Helper()
	prop, err := op.ResolveInput(newContext(params))
	require.NoError(t, err)
	require.NotNil(t, prop)
	require.NotNil(t, prop.Object)
	return prop.Object
}

func TestRegister(t *testing.T) {
	reg := operator.NewRegistry()
	require.NoError(t, Register(reg, Deps{Store: &fakeStore{}, Catalog: &fakeCatalog{}}))

	var names []string
	for _, e := range reg.List() {
		names = append(names, e.URI)
		assert.True(t, e.Operator.Config().Dynamic)
	}
	assert.Equal(t, []string{"build_component", "build_operator_skeleton", "install_plugin", "manage_plugins"}, names)

	assert.Error(t, Register(reg, Deps{}))
}

func TestInstallPluginGitHubInputs(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{
		found: map[string][]plugin.Descriptor{
			"acme/one":  {{Name: "solo", Description: "only one"}},
			"acme/many": {{Name: "a", Description: "first"}, {Name: "b", Description: "second"}},
		},
	}
	op := NewInstallPlugin(store, cat)

	obj := resolve(t, op, nil)
	assert.Equal(t, []string{"tab", "gh_repo_instructions", "gh_repo"}, obj.Names())
	tab := obj.Property("tab")
	assert.Equal(t, []string{TabGitHub, TabOfficial, TabCommunity}, tab.Values)
	assert.Equal(t, TabGitHub, tab.Default)
	assert.Equal(t, types.ComponentTabs, tab.View.Component)
	assert.True(t, obj.Property("gh_repo").Required)

	obj = resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/one"})
	assert.Nil(t, obj.Property("plugin_names"))
	assert.True(t, obj.Valid())

	obj = resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/many"})
	names := obj.Property("plugin_names")
	require.NotNil(t, names)
	assert.Equal(t, types.KindList, names.Kind)
	assert.Equal(t, "Plugins", names.Label)
	assert.True(t, names.View.Multiple)
	assert.Equal(t, []string{"a", "b"}, names.View.Values())
	assert.Equal(t, "second", names.View.Choices[1].Description)
}

func TestInstallPluginGitHubFailures(t *testing.T) {
	cat := &fakeCatalog{findErr: fmt.Errorf("failed to list tree: %w", errors.New("rate limited"))}
	op := NewInstallPlugin(&fakeStore{}, cat)

	obj := resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/repo"})
	prop := obj.Property("error")
	require.NotNil(t, prop)
	assert.True(t, prop.Invalid)
	assert.Equal(t, types.ComponentError, prop.View.Component)
	assert.Equal(t, "Failed to find plugins at acme/repo", prop.View.Label)
	assert.Equal(t, "failed to list tree: rate limited", prop.View.Description)

	op = NewInstallPlugin(&fakeStore{}, &fakeCatalog{})
	obj = resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/empty"})
	prop = obj.Property("warning")
	require.NotNil(t, prop)
	assert.True(t, prop.Invalid)
	assert.Equal(t, "No plugins found at acme/empty", prop.View.Label)
}

func TestInstallPluginUpdates(t *testing.T) {
	store := &fakeStore{plugins: []plugin.Plugin{
		{Name: "b", Version: "1.0.0"},
		{Name: "a", Version: "0.1.0"},
		{Name: "other", Version: "3.0.0"},
	}}
	cat := &fakeCatalog{
		found: map[string][]plugin.Descriptor{
			"acme/many": {
				{Name: "a", URL: "https://github.com/acme/many/tree/main/a"},
				{Name: "b", Version: "1.2.0"},
				{Name: "c", URL: "https://github.com/acme/many/tree/main/c"},
			},
		},
		info: map[string]plugin.Descriptor{
			"https://github.com/acme/many/tree/main/a": {Name: "a", Version: "0.2.0"},
		},
	}
	op := NewInstallPlugin(store, cat)

	obj := resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/many"})
	prop := obj.Property("GITHUB_a_b_c_update_str")
	require.NotNil(t, prop)
	assert.Equal(t, "You are about to update the following plugins:\n- `a`: `v0.1.0` -> `v0.2.0`\n- `b`: `v1.0.0` -> `v1.2.0`", prop.Default)
	assert.Equal(t, types.ComponentMarkdown, prop.View.Component)
	assert.Equal(t, "Are you sure you want to update these plugins?", obj.Property("update_notice").View.Label)
	assert.Equal(t, int32(1), cat.calls.Load())

	obj = resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/many", "plugin_names": []any{"c"}})
	assert.Nil(t, obj.Property("update_notice"))
}

func TestInstallPluginHydrationIsBounded(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{info: map[string]plugin.Descriptor{}, delay: 20 * time.Millisecond}
	var found []plugin.Descriptor
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("p%02d", i)
		url := "https://github.com/acme/many/tree/main/" + name
		store.plugins = append(store.plugins, plugin.Plugin{Name: name, Version: "1.0.0"})
		found = append(found, plugin.Descriptor{Name: name, URL: url})
		if i%3 != 0 {
			cat.info[url] = plugin.Descriptor{Name: name, Version: "2.0.0"}
		}
	}
	cat.found = map[string][]plugin.Descriptor{"acme/many": found}
	op := NewInstallPlugin(store, cat)

	obj := resolve(t, op, operator.Params{"tab": TabGitHub, "gh_repo": "acme/many"})
	assert.Equal(t, int32(12), cat.calls.Load())
	assert.LessOrEqual(t, cat.maxSeen.Load(), int32(hydrateWorkers))
	assert.NotNil(t, obj.Property("update_notice"))
}

func TestInstallPluginZooInputs(t *testing.T) {
	cat := &fakeCatalog{
		official:  []plugin.Descriptor{{Name: "@pluginhost/io", Description: "io", URL: "https://github.com/pluginhost/plugins/tree/main/io"}},
		community: []plugin.Descriptor{{Name: "@someone/viz", URL: "https://github.com/someone/viz"}},
	}
	store := &fakeStore{plugins: []plugin.Plugin{{Name: "@pluginhost/io", Version: "1.0.0"}}}
	cat.info = map[string]plugin.Descriptor{cat.official[0].URL: {Name: "@pluginhost/io", Version: "1.1.0"}}
	op := NewInstallPlugin(store, cat)

	obj := resolve(t, op, operator.Params{"tab": TabOfficial})
	prop := obj.Property("official_plugin")
	require.NotNil(t, prop)
	assert.True(t, prop.Required)
	assert.Equal(t, []string{"@pluginhost/io"}, prop.Values)
	assert.Equal(t, "Choose an official-authored plugin from the zoo to install", prop.Description)

	obj = resolve(t, op, operator.Params{"tab": TabCommunity})
	prop = obj.Property("community_plugin")
	require.NotNil(t, prop)
	assert.Equal(t, "Choose a community-authored plugin from the zoo to install", prop.Description)

	obj = resolve(t, op, operator.Params{"tab": TabOfficial, "official_plugin": "@pluginhost/io"})
	prop = obj.Property("OFFICIAL_@pluginhost/io_update_str")
	require.NotNil(t, prop)
	assert.Contains(t, prop.Default, "- `@pluginhost/io`: `v1.0.0` -> `v1.1.0`")

	op = NewInstallPlugin(store, &fakeCatalog{zooErr: errors.New("index unavailable")})
	obj = resolve(t, op, operator.Params{"tab": TabCommunity})
	prop = obj.Property("error")
	require.NotNil(t, prop)
	assert.True(t, prop.Invalid)
	assert.Equal(t, "Failed to retrieve zoo plugins", prop.View.Label)
	assert.Equal(t, "index unavailable", prop.View.Description)
}

func TestInstallPluginExecute(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{
		community: []plugin.Descriptor{{Name: "@someone/viz", URL: "https://github.com/someone/viz"}},
	}
	op := NewInstallPlugin(store, cat)

	result, err := op.Execute(newContext(operator.Params{"tab": TabGitHub, "gh_repo": "acme/many", "plugin_names": []any{"a"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result["installed"])

	_, err = op.Execute(newContext(operator.Params{"tab": TabGitHub, "gh_repo": "acme/all"}))
	require.NoError(t, err)

	_, err = op.Execute(newContext(operator.Params{"tab": TabCommunity, "community_plugin": "@someone/viz"}))
	require.NoError(t, err)

	require.Len(t, store.downloads, 3)
	assert.Equal(t, download{ref: "acme/many", names: []string{"a"}, overwrite: true}, store.downloads[0])
	assert.Equal(t, download{ref: "acme/all", overwrite: true}, store.downloads[1])
	assert.Equal(t, download{ref: "https://github.com/someone/viz", names: []string{"@someone/viz"}, overwrite: true}, store.downloads[2])

	_, err = op.Execute(newContext(operator.Params{"tab": TabOfficial, "official_plugin": "@missing/one"}))
	assert.ErrorIs(t, err, catalog.ErrZooPluginNotFound)

	_, err = op.Execute(newContext(operator.Params{}))
	assert.ErrorContains(t, err, "gh_repo is required")

	_, err = op.Execute(newContext(operator.Params{"tab": "FTP"}))
	assert.ErrorContains(t, err, "unsupported tab")
}

func managedStore() *fakeStore {
	return &fakeStore{
		plugins: []plugin.Plugin{
			{Name: "alpha", Description: "first", URL: "https://github.com/acme/alpha", Enabled: true, HostRequirement: "pluginhost>=0.1"},
			{Name: "beta", Description: "second", URL: "https://github.com/acme/beta", Enabled: false},
		},
		requirements: map[string][]string{
			"alpha": {"gopkg.in/yaml.v3>=3.0", "pkg>=1.0,<2.0", "missing-package"},
		},
	}
}

func TestManagePluginsEnablementInputs(t *testing.T) {
	op := NewManagePlugins(managedStore(), nil)

	obj := resolve(t, op, nil)
	assert.Equal(t, []string{"tab", "enablement_header", "enablement1", "enablement2", "enablement_status"}, obj.Names())

	header := obj.Property("enablement_header").Object
	assert.Equal(t, "**Name**", header.Property("name").Default)
	assert.Equal(t, float64(7), header.Property("description").View.Space)

	row := obj.Property("enablement1").Object
	assert.Equal(t, "[alpha](https://github.com/acme/alpha)", row.Property("markdown_name").Default)
	assert.Equal(t, 6.5, row.Property("description").View.Space)
	assert.Equal(t, types.ComponentHidden, row.Property("name").View.Component)
	assert.Equal(t, true, row.Property("enabled").Default)
	assert.Equal(t, "", row.Property("enabled").Label)

	status := obj.Property("enablement_status")
	assert.Equal(t, "You have not made any changes", status.View.Label)
	assert.True(t, status.Invalid)

	obj = resolve(t, op, operator.Params{
		"tab":         TabEnablement,
		"enablement1": map[string]any{"name": "alpha", "enabled": false},
		"enablement2": map[string]any{"name": "beta", "enabled": false},
	})
	assert.Equal(t, "(edited)", obj.Property("enablement1").Object.Property("enabled").Label)
	assert.Equal(t, true, obj.Property("enablement1").Object.Property("enabled").Default)
	assert.Equal(t, "", obj.Property("enablement2").Object.Property("enabled").Label)
	status = obj.Property("enablement_status")
	assert.Equal(t, "You are about to change the enablement of 1 plugins", status.View.Label)
	assert.False(t, status.Invalid)
}

func TestManagePluginsExecute(t *testing.T) {
	store := managedStore()
	op := NewManagePlugins(store, nil)

	result, err := op.Execute(newContext(operator.Params{
		"tab":         TabEnablement,
		"enablement1": map[string]any{"name": "alpha", "enabled": false},
		"enablement2": map[string]any{"name": "beta", "enabled": true},
		"enablement4": map[string]any{"name": "ignored", "enabled": true},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, result["changed"])

	enabled, err := store.EnabledPlugins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, enabled)

	result, err = op.Execute(newContext(operator.Params{"tab": TabRequirements}))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestManagePluginsExecuteDefaultsToEnablement(t *testing.T) {
	store := managedStore()
	op := NewManagePlugins(store, nil)

	obj := resolve(t, op, operator.Params{
		"enablement1": map[string]any{"name": "alpha", "enabled": "false"},
	})
	assert.Equal(t, "(edited)", obj.Property("enablement1").Object.Property("enabled").Label)

	result, err := op.Execute(newContext(operator.Params{
		"enablement1": map[string]any{"name": "alpha", "enabled": "false"},
		"enablement2": map[string]any{"name": "beta"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, result["changed"])
	assert.Equal(t, 1, result["unchanged"])

	enabled, err := store.EnabledPlugins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, enabled)

	_, err = op.Execute(newContext(operator.Params{
		"enablement1": map[string]any{"name": "alpha", "enabled": "perhaps"},
	}))
	assert.ErrorContains(t, err, "enablement1")
}

func TestManagePluginsRequirements(t *testing.T) {
	checker := &requirements.Checker{
		HostName:    "pluginhost",
		HostVersion: "0.1.0",
		Packages:    requirements.StaticVersions{"gopkg.in/yaml.v3": "3.0.1", "pkg": "0.9"},
	}
	op := NewManagePlugins(managedStore(), checker)

	obj := resolve(t, op, operator.Params{"tab": TabRequirements})
	prop := obj.Property("requirements_name")
	require.NotNil(t, prop)
	assert.Equal(t, []string{"alpha", "beta"}, prop.Values)
	assert.Nil(t, obj.Property("requirements_status"))

	obj = resolve(t, op, operator.Params{"tab": TabRequirements, "requirements_name": "alpha"})
	assert.Equal(t, []string{
		"tab", "requirements_name", "requirements_header",
		"alpha_requirements1", "alpha_requirements2", "alpha_requirements3", "alpha_requirements4",
		"requirements_status",
	}, obj.Names())

	rows := []struct {
		requirement string
		version     string
		satisfied   bool
	}{
		{"pluginhost>=0.1", "0.1.0", true},
		{"gopkg.in/yaml.v3>=3.0", "3.0.1", true},
		{"pkg>=1.0,<2.0", "0.9", false},
		{"missing-package", "", false},
	}
	for i, want := range rows {
		row := obj.Property(fmt.Sprintf("alpha_requirements%d", i+1)).Object
		assert.Equal(t, want.requirement, row.Property("requirement").Default)
		assert.Equal(t, want.version, row.Property("version").Default)
		assert.Equal(t, want.satisfied, row.Property("satisfied").Default)
		assert.True(t, row.Property("satisfied").View.ReadOnly)
	}

	status := obj.Property("requirements_status")
	assert.Equal(t, types.ComponentWarning, status.View.Component)
	assert.Equal(t, "Only 2/4 package requirements are satisfied", status.View.Label)
	assert.True(t, status.Invalid)

	obj = resolve(t, op, operator.Params{"tab": TabRequirements, "requirements_name": "beta"})
	status = obj.Property("requirements_status")
	assert.Equal(t, "This plugin has no package requirements", status.View.Label)
	assert.Nil(t, obj.Property("requirements_header"))

	_, err := op.ResolveInput(newContext(operator.Params{"tab": TabRequirements, "requirements_name": "gone"}))
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
}

func TestManagePluginsAllSatisfied(t *testing.T) {
	store := &fakeStore{
		plugins:      []plugin.Plugin{{Name: "alpha"}},
		requirements: map[string][]string{"alpha": {"pkg>=1.0"}},
	}
	checker := &requirements.Checker{Packages: requirements.StaticVersions{"pkg": "1.2"}}
	op := NewManagePlugins(store, checker)

	obj := resolve(t, op, operator.Params{"tab": TabRequirements, "requirements_name": "alpha"})
	status := obj.Property("requirements_status")
	assert.Equal(t, types.ComponentNotice, status.View.Component)
	assert.Equal(t, "All package requirements are satisfied", status.View.Label)
	assert.True(t, status.Invalid)
}

func TestManagePluginsStoreError(t *testing.T) {
	op := NewManagePlugins(&fakeStore{err: errors.New("disk on fire")}, nil)
	_, err := op.ResolveInput(newContext(nil))
	assert.ErrorContains(t, err, "disk on fire")
}
