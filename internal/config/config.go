package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HostVersion is the version plugins' host requirements are checked against.
const HostVersion = "0.1.0"

// Settings backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// AppConfig represents the main application configuration.
type AppConfig struct {
	PluginsDir  string            `json:"plugins_dir" yaml:"plugins_dir"`
	HostVersion string            `json:"host_version,omitempty" yaml:"host_version,omitempty"`
	Settings    SettingsConfig    `json:"settings" yaml:"settings"`
	Catalog     CatalogConfig     `json:"catalog" yaml:"catalog"`
	Packages    map[string]string `json:"packages,omitempty" yaml:"packages,omitempty"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}

// SettingsConfig selects where plugin enablement is stored.
type SettingsConfig struct {
	Backend   string `json:"backend" yaml:"backend"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisKey  string `json:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

// CatalogConfig configures access to GitHub and the plugin zoo.
type CatalogConfig struct {
	APIURL   string `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	RawURL   string `json:"raw_url,omitempty" yaml:"raw_url,omitempty"`
	IndexURL string `json:"index_url,omitempty" yaml:"index_url,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout  string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ServerConfig configures the HTTP and gRPC host surfaces.
type ServerConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	GRPCPort int    `json:"grpc_port,omitempty" yaml:"grpc_port,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	return &AppConfig{
		PluginsDir:  "plugins",
		HostVersion: HostVersion,
		Settings: SettingsConfig{
			Backend:  BackendFile,
			RedisKey: "pluginhost:enablement",
		},
		Catalog: CatalogConfig{
			APIURL:   "https://api.github.com",
			RawURL:   "https://raw.githubusercontent.com",
			IndexURL: "https://raw.githubusercontent.com/pluginhost/plugin-zoo/main/plugins.yml",
			Timeout:  "30s",
		},
		Packages: map[string]string{},
		Server: ServerConfig{
			Addr:     ":8080",
			GRPCPort: 50051,
		},
	}
}

// Load reads the configuration at path. A missing file yields defaults.
// Files ending in .json are parsed as JSON, anything else as YAML.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if strings.EqualFold(filepath.Ext(path), ".json") {
				err = json.Unmarshal(data, cfg)
			} else {
				err = yaml.Unmarshal(data, cfg)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
				baseDir = abs
			}
		}
	}

	cfg.applyEnv()

	cfg.PluginsDir = resolvePath(baseDir, cfg.PluginsDir)
	if cfg.Settings.Path == "" {
		cfg.Settings.Path = filepath.Join(cfg.PluginsDir, ".settings.json")
	} else {
		cfg.Settings.Path = resolvePath(baseDir, cfg.Settings.Path)
	}
	if cfg.HostVersion == "" {
		cfg.HostVersion = HostVersion
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("PLUGINHOST_PLUGINS_DIR"); v != "" {
		c.PluginsDir = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Catalog.Token = v
	}
	if v := os.Getenv("PLUGINHOST_REDIS_ADDR"); v != "" {
		c.Settings.RedisAddr = v
		c.Settings.Backend = BackendRedis
	}
}

// Validate checks that the configuration is usable.
func (c *AppConfig) Validate() error {
	if c.PluginsDir == "" {
		return fmt.Errorf("plugins_dir is required")
	}
	switch c.Settings.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Settings.RedisAddr == "" {
			return fmt.Errorf("settings.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported settings backend: %q", c.Settings.Backend)
	}
	if _, err := c.Catalog.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses the catalog timeout. Empty means no timeout.
func (c CatalogConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid catalog.timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// Save writes the configuration to path as YAML.
func Save(cfg *AppConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func resolvePath(baseDir, p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p)
}
