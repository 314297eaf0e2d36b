package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/example/pluginhost/internal/process"
	"github.com/example/pluginhost/pkg/grpc"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
)

// Supervisor runs the operator servers of installed plugins.
type Supervisor struct {
	plugins    map[string]*ManagedPlugin
	mu         sync.Mutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	logger     *slog.Logger

	// Health configures monitoring of local servers. Zero Interval
	// disables it.
	Health HealthCheck
	// ReadyAttempts and ReadyDelay bound the wait for a server to report
	// SERVING after start.
	ReadyAttempts int
	ReadyDelay    time.Duration
	// MaxRestarts caps automatic restarts of an unhealthy server.
	MaxRestarts int
}

// ManagedPlugin is a running plugin server.
type ManagedPlugin struct {
	Name       string
	Dir        string
	Server     plugin.ServerConfig
	Port       int
	Client     *grpc.Client
	Cmd        *exec.Cmd
	RestartCnt int
	LastError  error
}

// NewSupervisor creates a supervisor.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		plugins:       make(map[string]*ManagedPlugin),
		ctx:           ctx,
		cancelFunc:    cancel,
		logger:        logger,
		ReadyAttempts: 10,
		ReadyDelay:    500 * time.Millisecond,
		MaxRestarts:   3,
		Health: HealthCheck{
			Interval:   30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
	}
}

// StartPlugin starts (or connects to) the server of p.
func (s *Supervisor) StartPlugin(p plugin.Plugin) (*grpc.Client, error) {
	if p.Server == nil {
		return nil, fmt.Errorf("plugin %s has no server", p.Name)
	}

	s.mu.Lock()
	_, exists := s.plugins[p.Name]
	s.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("plugin %s is already running", p.Name)
	}

	managed := &ManagedPlugin{Name: p.Name, Dir: p.Directory, Server: *p.Server}
	if err := s.launch(managed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plugins[p.Name]; exists {
		s.stop(managed)
		return nil, fmt.Errorf("plugin %s is already running", p.Name)
	}
	s.plugins[p.Name] = managed

	if managed.Cmd != nil && s.Health.Interval > 0 {
		s.enableHealthCheck(managed)
	}
	return managed.Client, nil
}

// launch starts the process of a local server and connects to it. m must
// not be visible to other goroutines yet; s.mu is not held.
func (s *Supervisor) launch(m *ManagedPlugin) error {
	if m.Server.Type == plugin.ServerTypeRemote {
		client, err := grpc.NewClientWithAddress(m.Server.Address)
		if err != nil {
			return fmt.Errorf("failed to connect to plugin %s: %w", m.Name, err)
		}
		m.Client = client
		return nil
	}

	port := m.Server.Port
	if port == 0 {
		free, err := process.FreePort()
		if err != nil {
			return err
		}
		port = free
	}

	cmd, err := process.StartServer(s.ctx, m.Server, process.Options{Dir: m.Dir, Port: port})
	if err != nil {
		return fmt.Errorf("failed to start plugin %s: %w", m.Name, err)
	}

	client, err := grpc.NewClient(port)
	if err == nil {
		err = client.WaitReady(s.ctx, s.ReadyAttempts, s.ReadyDelay)
	}
	if err != nil {
		if client != nil {
			client.Close()
		}
		process.StopServer(cmd)
		return fmt.Errorf("failed to connect to plugin %s: %w", m.Name, err)
	}

	m.Port = port
	m.Cmd = cmd
	m.Client = client
	s.logger.Info("started plugin server", "plugin", m.Name, "port", port, "pid", cmd.Process.Pid)
	return nil
}

// enableHealthCheck monitors m until it turns unhealthy. The caller holds
// s.mu.
func (s *Supervisor) enableHealthCheck(m *ManagedPlugin) {
	config := s.Health
	config.OnUnhealthy = func(err error) {
		s.restartPlugin(m, err)
	}
	go MonitorPluginHealth(s.ctx, m.Client, config)
}

// restartPlugin replaces the unhealthy server m with a new process. On
// success the replacement takes m's place and is monitored in turn; on
// failure m stays registered and monitored so the next check retries,
// until MaxRestarts is reached.
func (s *Supervisor) restartPlugin(m *ManagedPlugin, cause error) {
	s.mu.Lock()
	if s.ctx.Err() != nil || s.plugins[m.Name] != m {
		s.mu.Unlock()
		return
	}
	m.LastError = cause
	s.logger.Warn("plugin server unhealthy", "plugin", m.Name, "error", cause)
	if m.Cmd == nil {
		m.LastError = fmt.Errorf("cannot restart a remote plugin")
		s.mu.Unlock()
		return
	}
	if m.RestartCnt >= s.MaxRestarts {
		m.LastError = fmt.Errorf("giving up after %d restarts: %w", m.RestartCnt, cause)
		s.logger.Error("plugin server not restarted", "plugin", m.Name, "restarts", m.RestartCnt)
		s.mu.Unlock()
		return
	}
	m.RestartCnt++
	next := &ManagedPlugin{Name: m.Name, Dir: m.Dir, Server: m.Server, RestartCnt: m.RestartCnt}
	s.mu.Unlock()

	s.stop(m)
	err := s.launch(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plugins[m.Name] != m {
		// Stopped while restarting.
		if err == nil {
			s.stop(next)
		}
		return
	}
	if err != nil {
		m.LastError = fmt.Errorf("failed to restart plugin: %w", err)
		s.logger.Error("plugin restart failed", "plugin", m.Name, "error", err)
		s.enableHealthCheck(m)
		return
	}
	s.plugins[m.Name] = next
	s.logger.Info("plugin server restarted", "plugin", m.Name, "restarts", next.RestartCnt)
	s.enableHealthCheck(next)
}

// StopPlugin stops a running plugin server.
func (s *Supervisor) StopPlugin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %s is not running", name)
	}
	s.stop(m)
	delete(s.plugins, name)
	return nil
}

func (s *Supervisor) stop(m *ManagedPlugin) {
	if err := m.Client.Close(); err != nil {
		s.logger.Warn("failed to close plugin client", "plugin", m.Name, "error", err)
	}
	if m.Cmd != nil {
		if err := process.StopServer(m.Cmd); err != nil {
			s.logger.Warn("failed to kill plugin process", "plugin", m.Name, "error", err)
		}
	}
}

// StopAll stops every plugin server.
func (s *Supervisor) StopAll() {
	s.cancelFunc()
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, m := range s.plugins {
		s.stop(m)
		delete(s.plugins, name)
	}
}

// Client returns the client of a running plugin.
func (s *Supervisor) Client(name string) (*grpc.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.plugins[name]
	if !exists {
		return nil, fmt.Errorf("plugin %s is not running", name)
	}
	return m.Client, nil
}

func (s *Supervisor) clientFunc(name string) grpc.ClientFunc {
	return func() (*grpc.Client, error) { return s.Client(name) }
}

// Running returns a snapshot of the running plugins.
func (s *Supervisor) Running() []ManagedPlugin {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ManagedPlugin, 0, len(s.plugins))
	for _, m := range s.plugins {
		out = append(out, *m)
	}
	return out
}

// OperatorURI is the registry URI of an operator served by a plugin.
func OperatorURI(pluginName, operatorName string) string {
	return pluginName + "/" + operatorName
}

// RegisterOperators starts the servers of the enabled plugins that have one
// and registers their operators as "<plugin>/<operator>". Plugins that fail
// to start are logged and skipped.
func (s *Supervisor) RegisterOperators(ctx context.Context, reg *operator.Registry, plugins []plugin.Plugin) int {
	count := 0
	for _, p := range plugins {
		if !p.Enabled || p.Server == nil {
			continue
		}
		client, err := s.StartPlugin(p)
		if err != nil {
			s.logger.Error("failed to start plugin", "plugin", p.Name, "error", err)
			continue
		}
		configs, err := client.ListOperators(ctx)
		if err != nil {
			s.logger.Error("failed to list plugin operators", "plugin", p.Name, "error", err)
			continue
		}
		for _, cfg := range configs {
			uri := OperatorURI(p.Name, cfg.Name)
			if err := reg.RegisterAs(uri, grpc.NewRemoteOperatorFunc(s.clientFunc(p.Name), cfg)); err != nil {
				s.logger.Warn("skipping operator", "operator", uri, "error", err)
				continue
			}
			count++
		}
	}
	return count
}
