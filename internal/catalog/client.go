package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
	"resty.dev/v3"

	"github.com/example/pluginhost/pkg/plugin"
)

// ErrZooPluginNotFound is returned when a name is absent from the zoo index.
var ErrZooPluginNotFound = errors.New("plugin not found in zoo")

// Options configures a Client.
type Options struct {
	APIURL   string
	RawURL   string
	IndexURL string
	Token    string
	Timeout  time.Duration
}

// Client discovers plugins on GitHub and in the zoo index.
type Client struct {
	http   *resty.Client
	opts   Options
	logger *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.github.com"
	}
	if opts.RawURL == "" {
		opts.RawURL = "https://raw.githubusercontent.com"
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	opts.RawURL = strings.TrimRight(opts.RawURL, "/")

	c := resty.New().SetHeader("User-Agent", "pluginhost")
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	return &Client{http: c, opts: opts, logger: logger}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) get(ctx context.Context, u string, accept string) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if accept != "" {
		req.SetHeader("Accept", accept)
	}
	resp, err := req.Get(u)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: unexpected status %d", u, resp.StatusCode())
	}
	return resp.Bytes(), nil
}

// rawURL returns the raw content URL of the file at loc.Path.
func (c *Client) rawURL(loc GitHubRepo) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.opts.RawURL,
		url.PathEscape(loc.User), url.PathEscape(loc.Repo), loc.RefOrHead(), loc.Path)
}

// FindPlugins lists the plugins whose manifests live at or below ref.
func (c *Client) FindPlugins(ctx context.Context, ref string) ([]plugin.Descriptor, error) {
	repo, err := ParseRepo(ref)
	if err != nil {
		return nil, err
	}

	manifests, err := c.listManifests(ctx, repo)
	if err != nil {
		return nil, err
	}

	root := repo
	root.Path = ""
	var found []plugin.Descriptor
	for _, p := range manifests {
		file := root.Join(p)
		data, err := c.get(ctx, c.rawURL(file), "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", p, err)
		}
		m, err := plugin.ParseManifest(data)
		if err != nil {
			c.logger.Warn("skipping invalid manifest", "repo", repo.String(), "path", p, "error", err)
			continue
		}
		found = append(found, m.Descriptor(file.Join("..").URL()))
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	c.logger.Debug("found plugins", "repo", repo.String(), "count", len(found))
	return found, nil
}

// listManifests returns the paths of all manifests under repo.Path.
func (c *Client) listManifests(ctx context.Context, repo GitHubRepo) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.opts.APIURL, url.PathEscape(repo.User), url.PathEscape(repo.Repo), url.PathEscape(repo.RefOrHead()))
	data, err := c.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("GET %s: invalid JSON response", u)
	}

	prefix := strings.Trim(repo.Path, "/")
	var paths []string
	gjson.GetBytes(data, "tree").ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("type").String() != "blob" {
			return true
		}
		p := entry.Get("path").String()
		if !plugin.IsManifest(path.Base(p)) {
			return true
		}
		if prefix != "" && p != prefix && !strings.HasPrefix(p, prefix+"/") {
			return true
		}
		paths = append(paths, p)
		return true
	})
	if gjson.GetBytes(data, "truncated").Bool() {
		c.logger.Warn("repository tree truncated", "repo", repo.String())
	}
	return paths, nil
}

// PluginInfo fetches the manifest of the plugin at a GitHub location.
func (c *Client) PluginInfo(ctx context.Context, location string) (*plugin.Descriptor, error) {
	repo, err := ParseRepo(location)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, name := range plugin.ManifestFiles {
		data, err := c.get(ctx, c.rawURL(repo.Join(name)), "")
		if err != nil {
			lastErr = err
			continue
		}
		m, err := plugin.ParseManifest(data)
		if err != nil {
			return nil, err
		}
		d := m.Descriptor(repo.URL())
		return &d, nil
	}
	return nil, fmt.Errorf("no manifest at %s: %w", location, lastErr)
}

// FetchArchive downloads a gzipped tarball of the repository at repo.Ref.
func (c *Client) FetchArchive(ctx context.Context, repo GitHubRepo) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/tarball", c.opts.APIURL, url.PathEscape(repo.User), url.PathEscape(repo.Repo))
	if repo.Ref != "" {
		u += "/" + url.PathEscape(repo.Ref)
	}
	return c.get(ctx, u, "")
}

type zooIndex struct {
	Official  []plugin.Descriptor `yaml:"official"`
	Community []plugin.Descriptor `yaml:"community"`
}

// ZooPlugins returns the official and community plugins of the zoo index.
func (c *Client) ZooPlugins(ctx context.Context) (official, community []plugin.Descriptor, err error) {
	if c.opts.IndexURL == "" {
		return nil, nil, fmt.Errorf("no zoo index configured")
	}
	data, err := c.get(ctx, c.opts.IndexURL, "")
	if err != nil {
		return nil, nil, err
	}
	var idx zooIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, nil, fmt.Errorf("failed to parse zoo index: %w", err)
	}
	return idx.Official, idx.Community, nil
}

// ZooPluginURL returns the location of the zoo plugin called name.
func (c *Client) ZooPluginURL(ctx context.Context, name string) (string, error) {
	official, community, err := c.ZooPlugins(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range append(official, community...) {
		if d.Name == name {
			return d.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrZooPluginNotFound, name)
}
