package requirements

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var pep440Pattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview|dev)[-_.]?(\d*))?$`)

// pre-release tags in semver identifier form. dev sorts before alpha.
var preTags = map[string]string{
	"dev":     "0dev",
	"a":       "alpha",
	"alpha":   "alpha",
	"b":       "beta",
	"beta":    "beta",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

// Canonical maps a version onto canonical semver ("v1.2.0", "v1.0.0-rc.1").
// Local "+" segments are dropped and release segments beyond the third are
// ignored.
func Canonical(version string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return "", false
	}
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(v, "v")

	if semver.IsValid("v" + v) {
		return semver.Canonical("v" + v), true
	}

	m := pep440Pattern.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}

	release := strings.Split(m[1], ".")
	if len(release) > 3 {
		release = release[:3]
	}
	for len(release) < 3 {
		release = append(release, "0")
	}
	for i, seg := range release {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return "", false
		}
		release[i] = strconv.Itoa(n)
	}

	out := "v" + strings.Join(release, ".")
	if m[2] != "" {
		num := m[3]
		if num == "" {
			num = "0"
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return "", false
		}
		out += "-" + preTags[m[2]] + "." + strconv.Itoa(n)
	}

	if !semver.IsValid(out) {
		return "", false
	}
	return out, true
}

// Compare compares two versions. Unparseable versions sort first.
func Compare(a, b string) int {
	ca, _ := Canonical(a)
	cb, _ := Canonical(b)
	return semver.Compare(ca, cb)
}

// release returns the numeric release segments of a canonical version.
func release(canonical string) []int {
	core := strings.TrimPrefix(canonical, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, _ := strconv.Atoi(p)
		out = append(out, n)
	}
	return out
}

// prefixSegments parses a dotted numeric prefix such as "1.2".
func prefixSegments(prefix string) ([]int, bool) {
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "v")
	if prefix == "" {
		return nil, false
	}
	parts := strings.Split(prefix, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func hasPrefix(segments, prefix []int) bool {
	for i, want := range prefix {
		got := 0
		if i < len(segments) {
			got = segments[i]
		}
		if got != want {
			return false
		}
	}
	return true
}
