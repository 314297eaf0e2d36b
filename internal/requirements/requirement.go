// Package requirements parses package requirement strings such as
// "pkg[extra]>=1.0,<2.0; python_version>'3'" and checks installed versions
// against them.
package requirements

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidRequirement is returned for strings that are not requirements.
var ErrInvalidRequirement = errors.New("invalid requirement")

var (
	namePattern    = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._/-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)
	clausePattern  = regexp.MustCompile(`^(===|~=|==|!=|>=|<=|>|<)\s*(\S+)$`)
	releasePattern = regexp.MustCompile(`^\d+(?:\.\d+)*`)
)

// Specifier is a single version clause such as ">=1.0".
type Specifier struct {
	Op      string
	Version string
}

func (s Specifier) String() string {
	return s.Op + s.Version
}

func (s Specifier) wildcard() bool {
	return (s.Op == "==" || s.Op == "!=") && strings.HasSuffix(s.Version, ".*")
}

// prerelease reports whether the clause names a pre-release version.
func (s Specifier) prerelease() bool {
	if s.wildcard() || s.Op == "===" {
		return false
	}
	c, ok := Canonical(s.Version)
	return ok && semver.Prerelease(c) != ""
}

func (s Specifier) matches(raw, canonical string) bool {
	switch {
	case s.Op == "===":
		return strings.TrimSpace(raw) == s.Version
	case s.wildcard():
		prefix, _ := prefixSegments(strings.TrimSuffix(s.Version, ".*"))
		in := hasPrefix(release(canonical), prefix)
		if s.Op == "==" {
			return in
		}
		return !in
	}

	want, ok := Canonical(s.Version)
	if !ok {
		return false
	}
	cmp := semver.Compare(canonical, want)
	switch s.Op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case "~=":
		prefix, _ := prefixSegments(releasePattern.FindString(strings.TrimPrefix(s.Version, "v")))
		if len(prefix) < 2 {
			return false
		}
		return cmp >= 0 && hasPrefix(release(canonical), prefix[:len(prefix)-1])
	}
	return false
}

// SpecifierSet is a conjunction of clauses.
type SpecifierSet []Specifier

func (s SpecifierSet) String() string {
	parts := make([]string, len(s))
	for i, spec := range s {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// Contains reports whether version satisfies every clause. Pre-releases only
// match when a clause names one.
func (s SpecifierSet) Contains(version string) bool {
	canonical, ok := Canonical(version)
	if !ok {
		return false
	}
	if semver.Prerelease(canonical) != "" {
		allowed := false
		for _, spec := range s {
			if spec.prerelease() {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	for _, spec := range s {
		if !spec.matches(version, canonical) {
			return false
		}
	}
	return true
}

// Requirement is a parsed requirement string.
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers SpecifierSet
}

func (r Requirement) String() string {
	return r.Name + r.Specifiers.String()
}

// Parse parses a requirement string. Environment markers and URL references
// are accepted but ignored.
func Parse(s string) (Requirement, error) {
	raw := s
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	m := namePattern.FindStringSubmatch(s)
	if m == nil {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, raw)
	}

	req := Requirement{Name: m[1]}
	if m[2] != "" {
		for _, extra := range strings.Split(m[2], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
	}

	rest := strings.TrimSpace(m[3])
	if strings.HasPrefix(rest, "@") {
		return req, nil
	}
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return Requirement{}, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidRequirement, raw)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if rest == "" {
		return req, nil
	}

	specs, err := parseSpecifiers(rest)
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %v", ErrInvalidRequirement, raw, err)
	}
	req.Specifiers = specs
	return req, nil
}

// ParseSpecifiers parses a comma separated list of clauses.
func ParseSpecifiers(s string) (SpecifierSet, error) {
	specs, err := parseSpecifiers(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequirement, err)
	}
	return specs, nil
}

func parseSpecifiers(s string) (SpecifierSet, error) {
	var specs SpecifierSet
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		cm := clausePattern.FindStringSubmatch(clause)
		if cm == nil {
			return nil, fmt.Errorf("bad clause %q", clause)
		}
		spec := Specifier{Op: cm[1], Version: cm[2]}
		if err := validate(spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func validate(spec Specifier) error {
	switch {
	case spec.Op == "===":
		return nil
	case strings.HasSuffix(spec.Version, ".*"):
		if !spec.wildcard() {
			return fmt.Errorf("wildcard not allowed with %s", spec.Op)
		}
		if _, ok := prefixSegments(strings.TrimSuffix(spec.Version, ".*")); !ok {
			return fmt.Errorf("bad wildcard %q", spec.Version)
		}
		return nil
	}
	if _, ok := Canonical(spec.Version); !ok {
		return fmt.Errorf("bad version %q", spec.Version)
	}
	if spec.Op == "~=" && !strings.Contains(releasePattern.FindString(strings.TrimPrefix(spec.Version, "v")), ".") {
		return fmt.Errorf("~= needs at least two release segments")
	}
	return nil
}
