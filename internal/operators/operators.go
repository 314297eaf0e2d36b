// Package operators implements the built-in plugin management operators:
// installing plugins, managing their enablement and requirements, and the
// plugin builder wizards.
package operators

import (
	"context"
	"fmt"

	"github.com/example/pluginhost/internal/requirements"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
)

// PluginStore is the local plugin store the operators read and modify.
type PluginStore interface {
	ListPlugins(ctx context.Context) ([]plugin.Plugin, error)
	GetPlugin(ctx context.Context, name string) (*plugin.Plugin, error)
	EnabledPlugins(ctx context.Context) ([]string, error)
	EnablePlugin(ctx context.Context, name string) error
	DisablePlugin(ctx context.Context, name string) error
	LoadRequirements(ctx context.Context, name string) ([]string, error)
	DownloadPlugin(ctx context.Context, ref string, names []string, overwrite bool) ([]plugin.Plugin, error)
}

// Catalog discovers plugins that are not installed yet.
type Catalog interface {
	FindPlugins(ctx context.Context, ref string) ([]plugin.Descriptor, error)
	ZooPlugins(ctx context.Context) (official, community []plugin.Descriptor, err error)
	PluginInfo(ctx context.Context, location string) (*plugin.Descriptor, error)
	ZooPluginURL(ctx context.Context, name string) (string, error)
}

// Deps are the collaborators of the built-in operators.
type Deps struct {
	Store   PluginStore
	Catalog Catalog
	Checker *requirements.Checker
	// PluginsDir is where build_operator_skeleton writes when no directory
	// is chosen.
	PluginsDir string
}

const (
	lightIcon = "/assets/icon-light.svg"
	darkIcon  = "/assets/icon-dark.svg"
	buildIcon = "/assets/build_icon.svg"
)

// Builtins returns the built-in operators.
func Builtins(deps Deps) []operator.Operator {
	return []operator.Operator{
		NewInstallPlugin(deps.Store, deps.Catalog),
		NewManagePlugins(deps.Store, deps.Checker),
		NewBuildComponent(),
		NewBuildOperatorSkeleton(deps.PluginsDir),
	}
}

// Register adds the built-in operators to reg.
func Register(reg *operator.Registry, deps Deps) error {
	for _, op := range Builtins(deps) {
		if err := reg.Register(op); err != nil {
			return fmt.Errorf("failed to register %s: %w", op.Config().Name, err)
		}
	}
	return nil
}
