package catalog

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidRepo is returned for strings that do not name a GitHub repository.
var ErrInvalidRepo = errors.New("invalid GitHub repository")

// GitHubRepo is a location inside a GitHub repository.
type GitHubRepo struct {
	User string
	Repo string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref  string
	Path string
}

// ParseRepo parses any of
//
//	https://github.com/<user>/<repo>
//	https://github.com/<user>/<repo>/tree/<branch>[/<path>]
//	https://github.com/<user>/<repo>/commit/<commit>
//	<user>/<repo>[/<ref>[/<path>]]
func ParseRepo(ref string) (GitHubRepo, error) {
	s := strings.TrimSpace(ref)
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return GitHubRepo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, ref)
	}
	for _, p := range parts[:2] {
		if p == "" || strings.ContainsAny(p, " :?#") {
			return GitHubRepo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, ref)
		}
	}

	// GitHub user names never contain dots, so this is another host.
	if strings.Contains(parts[0], ".") {
		return GitHubRepo{}, fmt.Errorf("%w: %q", ErrInvalidRepo, ref)
	}

	repo := GitHubRepo{User: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	rest := parts[2:]
	if len(rest) > 0 {
		switch rest[0] {
		case "tree", "blob":
			if len(rest) < 2 {
				return GitHubRepo{}, fmt.Errorf("%w: missing ref in %q", ErrInvalidRepo, ref)
			}
			repo.Ref = rest[1]
			repo.Path = strings.Join(rest[2:], "/")
		case "commit":
			if len(rest) != 2 {
				return GitHubRepo{}, fmt.Errorf("%w: bad commit URL %q", ErrInvalidRepo, ref)
			}
			repo.Ref = rest[1]
		default:
			repo.Ref = rest[0]
			repo.Path = strings.Join(rest[1:], "/")
		}
	}
	return repo, nil
}

// String returns "<user>/<repo>".
func (r GitHubRepo) String() string {
	return r.User + "/" + r.Repo
}

// RefOrHead returns the ref, or HEAD for the default branch.
func (r GitHubRepo) RefOrHead() string {
	if r.Ref == "" {
		return "HEAD"
	}
	return r.Ref
}

// URL returns the browsable GitHub URL of the location.
func (r GitHubRepo) URL() string {
	u := "https://github.com/" + r.String()
	if r.Ref == "" && r.Path == "" {
		return u
	}
	u += "/tree/" + r.RefOrHead()
	if r.Path != "" {
		u += "/" + r.Path
	}
	return u
}

// Join returns the location of elem relative to r.Path. Joining ".." at the
// repository root stays at the root.
func (r GitHubRepo) Join(elem string) GitHubRepo {
	r.Path = strings.Trim(path.Join("/", r.Path, elem), "/")
	return r
}
