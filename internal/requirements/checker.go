package requirements

import (
	"path"
	"regexp"
	"runtime/debug"
	"strings"
)

// PackageVersions looks up installed package versions.
type PackageVersions interface {
	Version(name string) (string, bool)
}

// Result is the outcome of checking one requirement.
type Result struct {
	Requirement string `json:"requirement"`
	Version     string `json:"version"`
	Satisfied   bool   `json:"satisfied"`
}

// Checker checks requirements against the host and installed packages.
type Checker struct {
	HostName    string
	HostVersion string
	Packages    PackageVersions
}

// CheckHost checks a host requirement such as "pluginhost>=0.2". A bare
// specifier (">=0.2") is read as a requirement on the host.
func (c *Checker) CheckHost(req string) Result {
	res := Result{Requirement: req, Version: c.HostVersion}

	s := strings.TrimSpace(req)
	if s != "" && strings.ContainsRune("<>=!~", rune(s[0])) {
		s = c.hostName() + s
	}
	r, err := Parse(s)
	if err != nil {
		return res
	}
	res.Satisfied = len(r.Specifiers) == 0 || r.Specifiers.Contains(c.HostVersion)
	return res
}

// CheckPackage checks a package requirement against the installed version.
func (c *Checker) CheckPackage(req string) Result {
	res := Result{Requirement: req}

	r, err := Parse(req)
	if err != nil || c.Packages == nil {
		return res
	}
	version, ok := c.Packages.Version(r.Name)
	if !ok {
		return res
	}
	res.Version = version
	res.Satisfied = len(r.Specifiers) == 0 || r.Specifiers.Contains(version)
	return res
}

func (c *Checker) hostName() string {
	if c.HostName == "" {
		return "pluginhost"
	}
	return c.HostName
}

// StaticVersions is a fixed name to version table.
type StaticVersions map[string]string

// Version implements PackageVersions.
func (s StaticVersions) Version(name string) (string, bool) {
	v, ok := s[name]
	if !ok {
		v, ok = s[strings.ToLower(name)]
	}
	return v, ok
}

// Layered consults each source in order and returns the first hit.
type Layered []PackageVersions

// Version implements PackageVersions.
func (l Layered) Version(name string) (string, bool) {
	for _, src := range l {
		if src == nil {
			continue
		}
		if v, ok := src.Version(name); ok {
			return v, true
		}
	}
	return "", false
}

var majorSuffix = regexp.MustCompile(`^v[0-9]+$`)

// BuildInfoVersions reports the modules linked into the running binary. A
// package matches by full module path or by its last path element.
type BuildInfoVersions struct {
	byPath map[string]string
	byName map[string]string
}

// NewBuildInfoVersions reads the build info of the running binary.
func NewBuildInfoVersions() *BuildInfoVersions {
	info, _ := debug.ReadBuildInfo()
	return BuildInfoVersionsFrom(info)
}

// BuildInfoVersionsFrom indexes the dependencies of info.
func BuildInfoVersionsFrom(info *debug.BuildInfo) *BuildInfoVersions {
	b := &BuildInfoVersions{
		byPath: make(map[string]string),
		byName: make(map[string]string),
	}
	if info == nil {
		return b
	}
	for _, dep := range info.Deps {
		mod := dep
		if dep.Replace != nil {
			mod = dep.Replace
		}
		b.byPath[dep.Path] = mod.Version
		b.byName[strings.ToLower(moduleName(dep.Path))] = mod.Version
	}
	return b
}

// Version implements PackageVersions.
func (b *BuildInfoVersions) Version(name string) (string, bool) {
	if v, ok := b.byPath[name]; ok {
		return v, true
	}
	v, ok := b.byName[strings.ToLower(name)]
	return v, ok
}

// moduleName returns the last element of a module path, skipping a /vN
// major version suffix.
func moduleName(modPath string) string {
	base := path.Base(modPath)
	if majorSuffix.MatchString(base) {
		base = path.Base(path.Dir(modPath))
	}
	return base
}
