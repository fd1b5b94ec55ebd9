package registry

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gpack/pkg/cache"
	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/httputil"
	"github.com/matzehuels/gpack/pkg/manifest"
	"github.com/matzehuels/gpack/pkg/observability"
)

// LocalPrefix marks a local-path specifier.
const LocalPrefix = "file:"

// cacheKeyType prefixes metadata cache keys and labels cache events.
const cacheKeyType = "registry"

// LocalVersion is reported for local packages whose package.json has no version.
const LocalVersion = "0.0.0"

// Metadata describes one concrete version of a package.
type Metadata struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	License         string            `json:"license,omitempty"`
	Homepage        string            `json:"homepage,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	Bin             map[string]string `json:"bin,omitempty"`
	Dist            Dist              `json:"dist,omitzero"`

	// Resolved is "file:<path>" for local packages and empty otherwise.
	Resolved string `json:"-"`
}

// Dist is the distribution block of a registry document.
type Dist struct {
	Tarball string `json:"tarball,omitempty"`
	Shasum  string `json:"shasum,omitempty"`
}

// wireMetadata accepts the loose shapes found in real package.json files.
type wireMetadata struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	License         any               `json:"license"`
	Homepage        string            `json:"homepage"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Bin             manifest.Bin      `json:"bin"`
	Dist            Dist              `json:"dist"`
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &Metadata{
		Name:            w.Name,
		Version:         w.Version,
		Description:     w.Description,
		License:         extractField(w.License, "type"),
		Homepage:        w.Homepage,
		Dependencies:    w.Dependencies,
		DevDependencies: w.DevDependencies,
		Bin:             w.Bin.Named(w.Name),
		Dist:            w.Dist,
	}, nil
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

// IsLocal reports whether s is a local-path specifier.
func IsLocal(s string) bool {
	return strings.HasPrefix(s, LocalPrefix)
}

// Resolve returns metadata for name at version. Either argument may be a
// local-path specifier; version defaults to "latest" when empty.
func (c *Client) Resolve(ctx context.Context, name, version string) (*Metadata, error) {
	switch {
	case IsLocal(name):
		return c.resolveLocal(name)
	case IsLocal(version):
		return c.resolveLocal(version)
	}
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	if version == "" {
		version = "latest"
	}
	return c.resolveRemote(ctx, name, version)
}

func (c *Client) resolveLocal(spec string) (*Metadata, error) {
	dir := c.LocalPath(spec)
	path := filepath.Join(dir, "package.json")
	c.logger.Debug("reading local package", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodePackageNotFound, "no package.json in %s", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "read %s", path)
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "parse %s", path)
	}
	if meta.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "%s has no name", path)
	}
	if meta.Version == "" {
		meta.Version = LocalVersion
	}
	meta.Resolved = spec
	return meta, nil
}

// LocalPath returns the directory a local-path specifier points at.
// Relative paths are taken from the client's working directory.
func (c *Client) LocalPath(spec string) string {
	p := strings.TrimPrefix(spec, LocalPrefix)
	if !filepath.IsAbs(p) && c.workDir != "" {
		p = filepath.Join(c.workDir, p)
	}
	return filepath.Clean(p)
}

func (c *Client) resolveRemote(ctx context.Context, name, version string) (*Metadata, error) {
	key := cache.Key(cacheKeyType, describe(name, version))

	hooks := observability.Cache()
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if meta, err := decodeMetadata(data); err == nil {
			c.logger.Debug("metadata cache hit", "package", describe(name, version))
			hooks.OnCacheHit(ctx, cacheKeyType)
			return meta, nil
		}
	}
	hooks.OnCacheMiss(ctx, cacheKeyType)

	var data []byte
	err := httputil.Retry(ctx, retryAttempts, c.retryDelay, func() error {
		var err error
		data, err = c.fetchMetadata(ctx, name, version)
		return err
	})
	if err != nil {
		return nil, unwrapRetryable(err)
	}

	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "decode metadata for %s", describe(name, version))
	}
	if meta.Name == "" || meta.Version == "" {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "metadata for %s is missing name or version", describe(name, version))
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Debug("metadata cache write failed", "package", describe(name, version), "err", err)
	} else {
		hooks.OnCacheSet(ctx, cacheKeyType, len(data))
	}
	return meta, nil
}

func (c *Client) fetchMetadata(ctx context.Context, name, version string) ([]byte, error) {
	url := c.baseURL + "/" + name + "/" + version
	c.logger.Debug("fetching metadata", "url", url)

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, describe(name, version)); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read metadata for %s", describe(name, version)))
	}
	return data, nil
}
