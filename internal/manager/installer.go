package manager

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/pluginhost/pkg/plugin"
)

// Installer installs plugins from repository archives into a plugins dir.
type Installer struct {
	dir    string
	logger *slog.Logger
}

// NewInstaller creates an installer writing into dir.
func NewInstaller(dir string, logger *slog.Logger) *Installer {
	return &Installer{dir: dir, logger: logger}
}

// Install extracts a gzipped tarball and installs the plugins found at or
// below subPath. When names is empty every plugin found is installed.
// existing maps installed plugin names to their directories; an installed
// copy outside the target directory is removed on overwrite.
func (i *Installer) Install(archive []byte, subPath string, names []string, existing map[string]string, overwrite bool) ([]plugin.Plugin, error) {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plugins directory: %w", err)
	}
	staging, err := os.MkdirTemp(i.dir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractTarGz(archive, staging); err != nil {
		return nil, err
	}

	root := archiveRoot(staging)
	if subPath != "" {
		root = filepath.Join(root, filepath.FromSlash(subPath))
		if !within(staging, root) {
			return nil, fmt.Errorf("unsafe sub-path: %s", subPath)
		}
	}

	found, err := findManifests(root)
	if err != nil {
		return nil, err
	}

	selected := found
	if len(names) > 0 {
		selected = map[string]string{}
		var missing []string
		for _, name := range names {
			dir, ok := found[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			selected[name] = dir
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s not found in archive", plugin.ErrPluginNotFound, strings.Join(missing, ", "))
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no plugins found in archive")
	}

	ordered := make([]string, 0, len(selected))
	for name := range selected {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	var installed []plugin.Plugin
	for _, name := range ordered {
		target := filepath.Join(i.dir, filepath.FromSlash(name))
		if !within(i.dir, target) || target == filepath.Clean(i.dir) {
			return installed, fmt.Errorf("unsafe plugin name: %s", name)
		}
		if prev, ok := existing[name]; ok && filepath.Clean(prev) != target {
			if !overwrite {
				return installed, fmt.Errorf("%w: %s in %s", plugin.ErrAlreadyInstalled, name, prev)
			}
			if !within(i.dir, prev) || filepath.Clean(prev) == filepath.Clean(i.dir) {
				return installed, fmt.Errorf("refusing to remove %s outside the plugins directory: %s", name, prev)
			}
			if err := os.RemoveAll(prev); err != nil {
				return installed, fmt.Errorf("failed to remove %s: %w", name, err)
			}
			i.logger.Info("removed previous copy of plugin", "plugin", name, "dir", prev)
		}
		if _, err := os.Stat(target); err == nil {
			if !overwrite {
				return installed, fmt.Errorf("%w: %s", plugin.ErrAlreadyInstalled, name)
			}
			if err := os.RemoveAll(target); err != nil {
				return installed, fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return installed, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.Rename(selected[name], target); err != nil {
			return installed, fmt.Errorf("failed to install %s: %w", name, err)
		}

		m, err := plugin.LoadManifest(plugin.FindManifest(target))
		if err != nil {
			return installed, err
		}
		i.logger.Info("installed plugin", "plugin", name, "version", m.Version, "dir", target)
		installed = append(installed, fromManifest(m, target, true))
	}
	return installed, nil
}

// extractTarGz extracts data into dir, rejecting entries that would escape it.
func extractTarGz(data []byte, dir string) error {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		targetPath := filepath.Join(dir, header.Name)
		if !within(dir, targetPath) {
			return fmt.Errorf("unsafe tar path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777|0o600)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(file, tarReader); err != nil {
				file.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			file.Close()
		}
	}
}

// archiveRoot returns the single top-level directory GitHub wraps tarballs
// in, or dir itself.
func archiveRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}

// findManifests maps plugin names to their directories below root.
func findManifests(root string) (map[string]string, error) {
	found := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !plugin.IsManifest(d.Name()) {
			return nil
		}
		m, err := plugin.LoadManifest(path)
		if err != nil {
			return nil
		}
		if _, dup := found[m.Name]; !dup {
			found[m.Name] = filepath.Dir(path)
		}
		return fs.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}
	return found, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
