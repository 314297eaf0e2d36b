package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest at the root of every plugin.
const ManifestFile = "plugin.yml"

// ManifestFiles lists accepted manifest names in lookup order.
var ManifestFiles = []string{ManifestFile, "plugin.yaml"}

var (
	// ErrPluginNotFound is returned when a plugin is not installed.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrAlreadyInstalled is returned when installing over a plugin without overwrite.
	ErrAlreadyInstalled = errors.New("plugin already installed")
)

// Plugin is an installed plugin.
type Plugin struct {
	Name            string        `json:"name"`
	Version         string        `json:"version,omitempty"`
	Description     string        `json:"description,omitempty"`
	URL             string        `json:"url,omitempty"`
	Enabled         bool          `json:"enabled"`
	Directory       string        `json:"directory"`
	Operators       []string      `json:"operators,omitempty"`
	HostRequirement string        `json:"host_requirement,omitempty"`
	Server          *ServerConfig `json:"server,omitempty"`
}

// Descriptor is a plugin known to a catalog but not necessarily installed.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Manifest is the contents of plugin.yml.
type Manifest struct {
	Name            string        `json:"name" yaml:"name"`
	Version         string        `json:"version,omitempty" yaml:"version,omitempty"`
	Description     string        `json:"description,omitempty" yaml:"description,omitempty"`
	URL             string        `json:"url,omitempty" yaml:"url,omitempty"`
	Operators       []string      `json:"operators,omitempty" yaml:"operators,omitempty"`
	HostRequirement string        `json:"host_requirement,omitempty" yaml:"host_requirement,omitempty"`
	Server          *ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}
	if m.Server != nil {
		if err := m.Server.Validate(); err != nil {
			return nil, fmt.Errorf("invalid server for plugin %q: %w", m.Name, err)
		}
	}
	return &m, nil
}

// FindManifest returns the manifest path inside dir, or "" when none exists.
func FindManifest(dir string) string {
	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// IsManifest reports whether a file name is a plugin manifest.
func IsManifest(name string) bool {
	for _, n := range ManifestFiles {
		if name == n {
			return true
		}
	}
	return false
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Descriptor returns the catalog view of the manifest.
func (m *Manifest) Descriptor(url string) Descriptor {
	if m.URL != "" {
		url = m.URL
	}
	return Descriptor{
		Name:        m.Name,
		Description: m.Description,
		URL:         url,
		Version:     m.Version,
	}
}
