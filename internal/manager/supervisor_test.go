package manager

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pluginhost/internal/logging"
	"github.com/example/pluginhost/internal/process"
	"github.com/example/pluginhost/pkg/grpc"
	"github.com/example/pluginhost/pkg/operator"
	"github.com/example/pluginhost/pkg/plugin"
	"github.com/example/pluginhost/pkg/types"
)

// pluginServerEnv makes the test binary act as a plugin server.
const pluginServerEnv = "PLUGINHOST_TEST_PLUGIN_SERVER"

func TestMain(m *testing.M) {
	if os.Getenv(pluginServerEnv) == "1" {
		os.Exit(servePlugin())
	}
	os.Exit(m.Run())
}

func servePlugin() int {
	fs := flag.NewFlagSet("plugin", flag.ContinueOnError)
	port := fs.Int("port", 0, "")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}
	reg := operator.NewRegistry()
	if err := reg.Register(echoOperator{}); err != nil {
		return 1
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := grpc.ListenAndServe(ctx, *port, reg, logging.NewNop()); err != nil {
		return 1
	}
	return 0
}

type echoOperator struct{}

func (echoOperator) Config() operator.Config {
	return operator.Config{Name: "echo", Label: "Echo"}
}

func (echoOperator) ResolveInput(ctx *operator.ExecutionContext) (*types.Property, error) {
	inputs := types.NewObject()
	inputs.Str("text", types.Required(true))
	return types.NewProperty(inputs), nil
}

func (echoOperator) Execute(ctx *operator.ExecutionContext) (operator.Result, error) {
	return operator.Result{"text": ctx.Params.String("text")}, nil
}

func startRemotePlugin(t *testing.T) string {
	t.Helper()
	reg := operator.NewRegistry()
	require.NoError(t, reg.Register(echoOperator{}))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- grpc.Serve(ctx, lis, reg, logging.NewNop()) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis.Addr().String()
}

func TestSupervisorRemotePlugin(t *testing.T) {
	addr := startRemotePlugin(t)
	sup := NewSupervisor(logging.NewNop())
	defer sup.StopAll()

	p := plugin.Plugin{
		Name:    "@acme/echo",
		Enabled: true,
		Server:  &plugin.ServerConfig{Type: plugin.ServerTypeRemote, Address: addr},
	}

	reg := operator.NewRegistry()
	n := sup.RegisterOperators(context.Background(), reg, []plugin.Plugin{
		p,
		{Name: "local-only", Enabled: true},
		{Name: "disabled", Server: &plugin.ServerConfig{Type: plugin.ServerTypeRemote, Address: addr}},
	})
	assert.Equal(t, 1, n)

	op, err := reg.Get("@acme/echo/echo")
	require.NoError(t, err)
	assert.Equal(t, "Echo", op.Config().Label)

	ectx := operator.NewExecutionContext(context.Background(), operator.Params{"text": "hi"})
	result, err := op.Execute(ectx)
	require.NoError(t, err)
	assert.Equal(t, "hi", result["text"])

	client, err := sup.Client("@acme/echo")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, client.WaitReady(ctx, 5, 100*time.Millisecond))

	_, err = sup.StartPlugin(p)
	assert.ErrorContains(t, err, "already running")

	assert.Len(t, sup.Running(), 1)
	require.NoError(t, sup.StopPlugin("@acme/echo"))
	assert.Error(t, sup.StopPlugin("@acme/echo"))
	_, err = sup.Client("@acme/echo")
	assert.Error(t, err)
}

func TestSupervisorStartErrors(t *testing.T) {
	sup := NewSupervisor(logging.NewNop())
	defer sup.StopAll()

	_, err := sup.StartPlugin(plugin.Plugin{Name: "none"})
	assert.ErrorContains(t, err, "has no server")

	_, err = sup.StartPlugin(plugin.Plugin{
		Name:      "missing-binary",
		Directory: t.TempDir(),
		Server:    &plugin.ServerConfig{Type: plugin.ServerTypeBinary, Path: "does-not-exist"},
	})
	assert.ErrorContains(t, err, "failed to start plugin")
	assert.Empty(t, sup.Running())
}

func TestOperatorURI(t *testing.T) {
	assert.Equal(t, "@acme/echo/echo", OperatorURI("@acme/echo", "echo"))
}

func localPlugin(t *testing.T) plugin.Plugin {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return plugin.Plugin{
		Name:      "@acme/local",
		Enabled:   true,
		Directory: t.TempDir(),
		Server: &plugin.ServerConfig{
			Type: plugin.ServerTypeBinary,
			Path: exe,
			Env:  map[string]string{pluginServerEnv: "1"},
		},
	}
}

func newRestartingSupervisor(maxRestarts int) *Supervisor {
	sup := NewSupervisor(logging.NewNop())
	sup.ReadyAttempts = 100
	sup.ReadyDelay = 100 * time.Millisecond
	sup.MaxRestarts = maxRestarts
	sup.Health = HealthCheck{Interval: 100 * time.Millisecond, MaxRetries: 1, RetryDelay: 10 * time.Millisecond}
	return sup
}

func running(t *testing.T, sup *Supervisor) ManagedPlugin {
	t.Helper()
	plugins := sup.Running()
	require.Len(t, plugins, 1)
	return plugins[0]
}

func echo(t *testing.T, op operator.Operator, text string) {
	t.Helper()
	ectx := operator.NewExecutionContext(context.Background(), operator.Params{"text": text})
	result, err := op.Execute(ectx)
	require.NoError(t, err)
	assert.Equal(t, text, result["text"])
}

func TestSupervisorRestartsKilledServer(t *testing.T) {
	sup := newRestartingSupervisor(3)
	defer sup.StopAll()

	reg := operator.NewRegistry()
	require.Equal(t, 1, sup.RegisterOperators(context.Background(), reg, []plugin.Plugin{localPlugin(t)}))
	op, err := reg.Get("@acme/local/echo")
	require.NoError(t, err)
	echo(t, op, "before")

	// Two kills in a row: the replacement must be monitored as well.
	for restart := 1; restart <= 2; restart++ {
		killed := running(t, sup)
		require.NoError(t, process.StopServer(killed.Cmd))

		require.Eventually(t, func() bool {
			m := sup.Running()
			return len(m) == 1 && m[0].Cmd != killed.Cmd && m[0].RestartCnt == restart
		}, 30*time.Second, 50*time.Millisecond)

		current := running(t, sup)
		assert.NotEqual(t, killed.Cmd.Process.Pid, current.Cmd.Process.Pid)
		assert.NoError(t, current.LastError)
		echo(t, op, "after restart")
	}
}

func TestSupervisorStopsRestartingAtLimit(t *testing.T) {
	sup := newRestartingSupervisor(1)
	defer sup.StopAll()

	_, err := sup.StartPlugin(localPlugin(t))
	require.NoError(t, err)

	first := running(t, sup)
	require.NoError(t, process.StopServer(first.Cmd))
	require.Eventually(t, func() bool {
		m := sup.Running()
		return len(m) == 1 && m[0].Cmd != first.Cmd
	}, 30*time.Second, 50*time.Millisecond)

	second := running(t, sup)
	require.NoError(t, process.StopServer(second.Cmd))
	require.Eventually(t, func() bool {
		m := sup.Running()
		return len(m) == 1 && m[0].LastError != nil
	}, 30*time.Second, 50*time.Millisecond)

	last := running(t, sup)
	assert.Equal(t, second.Cmd, last.Cmd)
	assert.Equal(t, 1, last.RestartCnt)
	assert.ErrorContains(t, last.LastError, "giving up after 1 restarts")
}
