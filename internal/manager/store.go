package manager

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/pluginhost/internal/catalog"
	"github.com/example/pluginhost/pkg/plugin"
)

// RequirementsFile lists a plugin's package requirements, one per line.
const RequirementsFile = "requirements.txt"

// ArchiveFetcher downloads repository archives.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, repo catalog.GitHubRepo) ([]byte, error)
}

// Store is the local plugin store rooted at the plugins directory.
type Store struct {
	dir        string
	enablement EnablementStore
	fetcher    ArchiveFetcher
	installer  *Installer
	logger     *slog.Logger
}

// NewStore creates a store. fetcher may be nil when downloads are not needed.
func NewStore(dir string, enablement EnablementStore, fetcher ArchiveFetcher, logger *slog.Logger) *Store {
	return &Store{
		dir:        dir,
		enablement: enablement,
		fetcher:    fetcher,
		installer:  NewInstaller(dir, logger),
		logger:     logger,
	}
}

// Dir returns the plugins directory.
func (s *Store) Dir() string {
	return s.dir
}

func fromManifest(m *plugin.Manifest, dir string, enabled bool) plugin.Plugin {
	return plugin.Plugin{
		Name:            m.Name,
		Version:         m.Version,
		Description:     m.Description,
		URL:             m.URL,
		Enabled:         enabled,
		Directory:       dir,
		Operators:       m.Operators,
		HostRequirement: m.HostRequirement,
		Server:          m.Server,
	}
}

// ListPlugins returns every installed plugin sorted by name.
func (s *Store) ListPlugins(ctx context.Context) ([]plugin.Plugin, error) {
	enablement, err := s.enablement.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]string{}
	var plugins []plugin.Plugin
	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != s.dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !plugin.IsManifest(d.Name()) {
			return nil
		}

		m, err := plugin.LoadManifest(path)
		if err != nil {
			s.logger.Warn("skipping invalid plugin", "path", path, "error", err)
			return nil
		}
		dir := filepath.Dir(path)
		if prev, dup := seen[m.Name]; dup {
			s.logger.Warn("duplicate plugin name", "plugin", m.Name, "dir", dir, "kept", prev)
			return fs.SkipDir
		}
		seen[m.Name] = dir

		enabled, ok := enablement[m.Name]
		if !ok {
			enabled = true
		}
		plugins = append(plugins, fromManifest(m, dir, enabled))
		return fs.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugins directory: %w", err)
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins, nil
}

// GetPlugin returns the installed plugin called name.
func (s *Store) GetPlugin(ctx context.Context, name string) (*plugin.Plugin, error) {
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

// EnabledPlugins returns the names of enabled plugins.
func (s *Store) EnabledPlugins(ctx context.Context) ([]string, error) {
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

// EnablePlugin enables an installed plugin.
func (s *Store) EnablePlugin(ctx context.Context, name string) error {
	return s.setEnabled(ctx, name, true)
}

// DisablePlugin disables an installed plugin.
func (s *Store) DisablePlugin(ctx context.Context, name string) error {
	return s.setEnabled(ctx, name, false)
}

func (s *Store) setEnabled(ctx context.Context, name string, enabled bool) error {
	if _, err := s.GetPlugin(ctx, name); err != nil {
		return err
	}
	if err := s.enablement.Set(ctx, name, enabled); err != nil {
		return err
	}
	s.logger.Info("plugin enablement changed", "plugin", name, "enabled", enabled)
	return nil
}

// LoadRequirements returns the package requirements of a plugin, or nil when
// it has no requirements file.
func (s *Store) LoadRequirements(ctx context.Context, name string) ([]string, error) {
	p, err := s.GetPlugin(ctx, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(p.Directory, RequirementsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	defer f.Close()

	var reqs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		reqs = append(reqs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	return reqs, nil
}

// DownloadPlugin downloads the repository at ref and installs the named
// plugins, or all plugins found when names is empty.
func (s *Store) DownloadPlugin(ctx context.Context, ref string, names []string, overwrite bool) ([]plugin.Plugin, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("downloads are not configured")
	}
	repo, err := catalog.ParseRepo(ref)
	if err != nil {
		return nil, err
	}

	s.logger.Info("downloading plugins", "repo", repo.String(), "ref", repo.Ref, "path", repo.Path, "plugins", names)
	archive, err := s.fetcher.FetchArchive(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", ref, err)
	}
	plugins, err := s.ListPlugins(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]string, len(plugins))
	for _, p := range plugins {
		existing[p.Name] = p.Directory
	}
	return s.installer.Install(archive, repo.Path, names, existing, overwrite)
}
