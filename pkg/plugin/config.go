package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// ServerType is how a plugin operator server is reached.
type ServerType string

const (
	// ServerTypeBinary runs a compiled Go binary.
	ServerTypeBinary ServerType = "binary"
	// ServerTypeCommand runs a custom command line.
	ServerTypeCommand ServerType = "command"
	// ServerTypeRemote connects to an already running server.
	ServerTypeRemote ServerType = "remote"
)

// ServerConfig is the optional server block of a plugin manifest. A zero
// Port picks a free local port at start.
type ServerConfig struct {
	Type    ServerType        `json:"type" yaml:"type"`
	Path    string            `json:"path,omitempty" yaml:"path,omitempty"`
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Port    int               `json:"port,omitempty" yaml:"port,omitempty"`
	Address string            `json:"address,omitempty" yaml:"address,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	WorkDir string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
}

// Validate checks if the server configuration is usable.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.Type {
	case ServerTypeBinary:
		if c.Path == "" {
			return fmt.Errorf("path is required for %s servers", c.Type)
		}
	case ServerTypeCommand:
		if c.Command == "" {
			return fmt.Errorf("command is required for command servers")
		}
		if !strings.Contains(c.Command, "{port}") {
			return fmt.Errorf("command must contain {port} placeholder")
		}
	case ServerTypeRemote:
		if c.Address == "" {
			return fmt.Errorf("address is required for remote servers")
		}
	default:
		return fmt.Errorf("unsupported server type: %s", c.Type)
	}

	return nil
}

// StartCommand returns the program and arguments that start the server on port.
func (c *ServerConfig) StartCommand(port int, args map[string]string) (string, []string, error) {
	var argSlice []string
	for k, v := range args {
		argSlice = append(argSlice, fmt.Sprintf("--%s=%s", k, v))
	}
	portStr := strconv.Itoa(port)

	switch c.Type {
	case ServerTypeBinary:
		return c.Path, append([]string{"-port", portStr}, argSlice...), nil

	case ServerTypeCommand:
		if c.Command == "" {
			return "", nil, fmt.Errorf("command template not specified")
		}
		cmd := strings.ReplaceAll(c.Command, "{port}", portStr)
		cmd = strings.ReplaceAll(cmd, "{path}", c.Path)
		cmd = strings.ReplaceAll(cmd, "{args}", strings.Join(argSlice, " "))

		parts := strings.Fields(cmd)
		if len(parts) == 0 {
			return "", nil, fmt.Errorf("empty command after template substitution")
		}
		return parts[0], parts[1:], nil

	default:
		return "", nil, fmt.Errorf("unsupported server type: %s", c.Type)
	}
}
