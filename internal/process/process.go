package process

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/example/pluginhost/pkg/plugin"
)

// Options controls how a plugin server process is started.
type Options struct {
	// Dir is the plugin directory. Relative paths in the config resolve
	// against it.
	Dir    string
	Port   int
	Args   map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// StartServer starts the plugin server described by cfg. The process is
// killed when ctx is done.
func StartServer(ctx context.Context, cfg plugin.ServerConfig, opts Options) (*exec.Cmd, error) {
	if cfg.Type == plugin.ServerTypeRemote {
		return nil, fmt.Errorf("remote servers are not started locally")
	}
	if cfg.Path != "" && !filepath.IsAbs(cfg.Path) && opts.Dir != "" {
		cfg.Path = filepath.Join(opts.Dir, cfg.Path)
	}

	name, args, err := cfg.StartCommand(opts.Port, opts.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to get start command: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
		if !filepath.IsAbs(cmd.Dir) && opts.Dir != "" {
			cmd.Dir = filepath.Join(opts.Dir, cfg.WorkDir)
		}
	}
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start plugin server: %w", err)
	}
	return cmd, nil
}

// StopServer kills a running plugin server process.
func StopServer(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("plugin process not found")
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	// Reap the process; the kill makes Wait return an error.
	_ = cmd.Wait()
	return nil
}

// FreePort asks the kernel for an unused local TCP port.
func FreePort() (int, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port, nil
}
