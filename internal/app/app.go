package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/pluginhost/internal/catalog"
	"github.com/example/pluginhost/internal/config"
	"github.com/example/pluginhost/internal/manager"
	"github.com/example/pluginhost/internal/operators"
	"github.com/example/pluginhost/internal/requirements"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/types"
	"github.com/example/pluginhost/pkg/ui"
)

// App wires the plugin store, the catalog, the plugin supervisor and the
// operator registry shared by every host surface.
type App struct {
	Config     *config.AppConfig
	Logger     *slog.Logger
	Store      *manager.Store
	Catalog    *catalog.Client
	Checker    *requirements.Checker
	Supervisor *manager.Supervisor
	Registry   *operator.Registry
	Out        io.Writer

	closers []io.Closer
}

// New builds an App from cfg. Built-in operators are registered; plugin
// operators are registered by LoadPlugins.
func New(cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Out: os.Stdout}

	enablement, err := a.newEnablementStore(cfg.Settings)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Catalog.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog.NewClient(catalog.Options{
		APIURL:   cfg.Catalog.APIURL,
		RawURL:   cfg.Catalog.RawURL,
		IndexURL: cfg.Catalog.IndexURL,
		Token:    cfg.Catalog.Token,
		Timeout:  timeout,
	}, logger)
	a.closers = append(a.closers, a.Catalog)

	a.Store = manager.NewStore(cfg.PluginsDir, enablement, a.Catalog, logger)
	a.Checker = &requirements.Checker{
		HostVersion: cfg.HostVersion,
		Packages: requirements.Layered{
			requirements.StaticVersions(cfg.Packages),
			requirements.NewBuildInfoVersions(),
		},
	}
	a.Supervisor = manager.NewSupervisor(logger)

	a.Registry = operator.NewRegistry()
	err = operators.Register(a.Registry, operators.Deps{
		Store:      a.Store,
		Catalog:    a.Catalog,
		Checker:    a.Checker,
		PluginsDir: cfg.PluginsDir,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) newEnablementStore(s config.SettingsConfig) (manager.EnablementStore, error) {
	switch s.Backend {
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.RedisAddr}})
		store := manager.NewRedisEnablementStore(client, s.RedisKey)
		a.closers = append(a.closers, store)
		return store, nil
	case config.BackendFile, "":
		return manager.NewFileEnablementStore(s.Path), nil
	default:
		return nil, fmt.Errorf("unsupported settings backend: %q", s.Backend)
	}
}

// LoadPlugins starts the servers of the enabled plugins and registers their
// operators. It returns the number of operators registered.
func (a *App) LoadPlugins(ctx context.Context) (int, error) {
	plugins, err := a.Store.ListPlugins(ctx)
	if err != nil {
		return 0, err
	}
	n := a.Supervisor.RegisterOperators(ctx, a.Registry, plugins)
	a.Logger.Debug("loaded plugin operators", "count", n)
	return n, nil
}

// Close stops plugin servers and releases clients.
func (a *App) Close() error {
	if a.Supervisor != nil {
		a.Supervisor.StopAll()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) newContext(ctx context.Context, uri string, params operator.Params, opts ...operator.ContextOption) *operator.ExecutionContext {
	opts = append([]operator.ContextOption{operator.WithLogger(a.Logger.With("operator", uri))}, opts...)
	return operator.NewExecutionContext(ctx, params, opts...)
}

// ResolveOperator resolves the input form of the operator at uri.
func (a *App) ResolveOperator(ctx context.Context, uri string, params operator.Params) (*types.Property, error) {
	op, err := a.Registry.Get(uri)
	if err != nil {
		return nil, err
	}
	ectx := a.newContext(ctx, uri, params)
	prop, err := op.ResolveInput(ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input of %s: %w", uri, err)
	}
	return prop, nil
}

// ExecuteOperator executes the operator at uri and reports a summary. The
// summary is returned even when Execute fails.
func (a *App) ExecuteOperator(ctx context.Context, uri string, params operator.Params) (*operator.Summary, error) {
	op, err := a.Registry.Get(uri)
	if err != nil {
		return nil, err
	}
	ectx := a.newContext(ctx, uri, params,
		operator.WithTriggerHandler(ui.NewTriggerHandler(uri, a.Logger)))

	start := time.Now()
	result, execErr := op.Execute(ectx)
	summary := &operator.Summary{
		Operator:  uri,
		RequestID: ectx.RequestID,
		Success:   execErr == nil,
		Duration:  time.Since(start),
		Result:    result,
		Triggers:  ectx.Triggers(),
	}
	if execErr != nil {
		summary.Error = execErr.Error()
		if errors.Is(ctx.Err(), context.Canceled) {
			ectx.Logger.Info("operator execution canceled")
			return summary, nil
		}
		return summary, fmt.Errorf("operator %s execution failed: %w", uri, execErr)
	}
	ectx.Logger.Info("operator executed", "duration", summary.Duration)
	return summary, nil
}

// RunOperator executes the operator at uri and prints its summary.
func (a *App) RunOperator(ctx context.Context, uri string, params operator.Params) error {
	summary, err := a.ExecuteOperator(ctx, uri, params)
	if summary != nil {
		ui.DisplayExecutionSummary(a.Out, summary)
	}
	return err
}

// ShowOperatorForm prints the resolved input form of the operator at uri.
func (a *App) ShowOperatorForm(ctx context.Context, uri string, params operator.Params) error {
	prop, err := a.ResolveOperator(ctx, uri, params)
	if err != nil {
		return err
	}
	return ui.RenderForm(a.Out, prop)
}

// ShowPluginInfo prints an installed plugin with its requirements.
func (a *App) ShowPluginInfo(ctx context.Context, name string) error {
	p, err := a.Store.GetPlugin(ctx, name)
	if err != nil {
		return err
	}
	reqs, err := a.Store.LoadRequirements(ctx, name)
	if err != nil {
		a.Logger.Warn("failed to load requirements", "plugin", name, "error", err)
	}
	ui.DisplayPluginInfo(a.Out, p, reqs)
	return nil
}

// ListPlugins prints the installed plugins.
func (a *App) ListPlugins(ctx context.Context) error {
	plugins, err := a.Store.ListPlugins(ctx)
	if err != nil {
		return err
	}
	ui.DisplayPlugins(a.Out, plugins)
	return nil
}

// ListOperators prints the registered operators.
func (a *App) ListOperators() {
	ui.DisplayOperators(a.Out, a.Registry.List())
}

// SetEnabled enables or disables an installed plugin.
func (a *App) SetEnabled(ctx context.Context, name string, enabled bool) error {
	if enabled {
		return a.Store.EnablePlugin(ctx, name)
	}
	return a.Store.DisablePlugin(ctx, name)
}
