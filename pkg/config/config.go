// Package config holds the explicit runtime configuration for gpack.
//
// Nothing below cmd/ reads the process environment or the home directory
// directly: the resolver, installer and script runner all receive a
// [Config] value. This keeps every component testable with a synthetic
// home, working directory and environment.
//
// Sources, lowest to highest precedence:
//
//  1. [Default] values
//  2. TOML file at $XDG_CONFIG_HOME/gpack/config.toml (or ~/.config/gpack/config.toml)
//  3. GPACK_* environment variables
//  4. CLI flags (applied by the caller after [Load])
//
// Example config.toml:
//
//	registry = "https://registry.npmjs.org"
//	concurrency = 16
//
//	[cache]
//	ttl = "5m"
//	redis = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/gpack/pkg/errors"
)

const (
	// AppName is used for config and cache directory names.
	AppName = "gpack"

	// DefaultRegistry is the public npm registry.
	DefaultRegistry = "https://registry.npmjs.org"

	// DefaultCacheTTL bounds how long "latest" lookups are reused.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultConcurrency is the number of in-flight registry lookups.
	DefaultConcurrency = 16

	// ManifestFile is the project manifest name.
	ManifestFile = "package.json"

	// LockfileFile is the lockfile name, relative to the working directory.
	LockfileFile = "gpack-lock.json"

	// ModulesDir is the name of the installed-packages directory.
	ModulesDir = "node_modules"

	// GlobalDir is the per-user installation root below the home directory.
	GlobalDir = ".gpack"

	// EnvFile is the optional project dotenv file.
	EnvFile = ".env"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	HomeDir     string            // user home; global installs live below it
	WorkDir     string            // project root containing package.json
	Env         map[string]string // environment snapshot seen by scripts
	Registry    string            // registry base URL, no trailing slash
	CacheDir    string            // metadata file cache location
	CacheTTL    time.Duration     // metadata cache lifetime
	NoCache     bool              // disable metadata caching
	Redis       string            // optional Redis address for a shared cache
	Concurrency int               // max in-flight registry lookups
}

// LoadOptions overrides the ambient inputs of [Load]. Zero values fall back
// to the current process (os.Getwd, os.UserHomeDir, os.Environ).
type LoadOptions struct {
	WorkDir    string
	HomeDir    string
	Environ    []string
	ConfigFile string // explicit config file; must exist when set
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Registry    string `toml:"registry"`
	Concurrency int    `toml:"concurrency"`
	Cache       struct {
		Dir   string `toml:"dir"`
		TTL   string `toml:"ttl"`
		Redis string `toml:"redis"`
		Off   bool   `toml:"disabled"`
	} `toml:"cache"`
}

// Default returns a Config with defaults for everything but the paths.
func Default() Config {
	return Config{
		Env:         map[string]string{},
		Registry:    DefaultRegistry,
		CacheTTL:    DefaultCacheTTL,
		Concurrency: DefaultConcurrency,
	}
}

// Load assembles a Config from defaults, the config file, the environment
// and the project .env file.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if err := cfg.loadPaths(opts); err != nil {
		return nil, err
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	cfg.Env = parseEnviron(environ)

	path := opts.ConfigFile
	if path == "" {
		path = cfg.defaultConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "config file not found: %s", path)
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.loadDotenv(); err != nil {
		return nil, err
	}

	cfg.Registry = strings.TrimSuffix(cfg.Registry, "/")
	if err := errors.ValidateURL(cfg.Registry); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadPaths(opts LoadOptions) error {
	c.WorkDir = opts.WorkDir
	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		c.WorkDir = wd
	}
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return err
	}
	c.WorkDir = abs

	c.HomeDir = opts.HomeDir
	if c.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home directory: %w", err)
		}
		c.HomeDir = home
	}
	return nil
}

func (c *Config) defaultConfigFile() string {
	if dir := c.Env["XDG_CONFIG_HOME"]; dir != "" {
		return filepath.Join(dir, AppName, "config.toml")
	}
	return filepath.Join(c.HomeDir, ".config", AppName, "config.toml")
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}

	if fc.Registry != "" {
		c.Registry = fc.Registry
	}
	if fc.Concurrency > 0 {
		c.Concurrency = fc.Concurrency
	}
	if fc.Cache.Dir != "" {
		c.CacheDir = fc.Cache.Dir
	}
	if fc.Cache.TTL != "" {
		ttl, err := time.ParseDuration(fc.Cache.TTL)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid cache.ttl in %s", path)
		}
		c.CacheTTL = ttl
	}
	if fc.Cache.Redis != "" {
		c.Redis = fc.Cache.Redis
	}
	c.NoCache = c.NoCache || fc.Cache.Off
	return nil
}

func (c *Config) applyEnv() error {
	if v := c.Env["GPACK_REGISTRY"]; v != "" {
		c.Registry = v
	}
	if v := c.Env["GPACK_REDIS"]; v != "" {
		c.Redis = v
	}
	if v := c.Env["GPACK_CACHE_DIR"]; v != "" {
		c.CacheDir = v
	}
	if v := c.Env["GPACK_CACHE_TTL"]; v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid GPACK_CACHE_TTL")
		}
		c.CacheTTL = ttl
	}
	if v := c.Env["GPACK_CONCURRENCY"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "invalid GPACK_CONCURRENCY %q", v)
		}
		c.Concurrency = n
	}
	if v := c.Env["GPACK_NO_CACHE"]; v != "" {
		off, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "invalid GPACK_NO_CACHE %q", v)
		}
		c.NoCache = off
	}
	if c.CacheDir == "" {
		c.CacheDir = c.defaultCacheDir()
	}
	return nil
}

// defaultCacheDir follows XDG (~/.cache/gpack/).
func (c *Config) defaultCacheDir() string {
	if dir := c.Env["XDG_CACHE_HOME"]; dir != "" {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(c.HomeDir, ".cache", AppName)
}

// loadDotenv merges the project .env file into the snapshot. Variables
// already present in the process environment win.
func (c *Config) loadDotenv() error {
	path := filepath.Join(c.WorkDir, EnvFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	for k, v := range vars {
		if _, ok := c.Env[k]; !ok {
			c.Env[k] = v
		}
	}
	return nil
}

func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Getenv looks up a variable in the snapshot.
func (c *Config) Getenv(key string) (string, bool) {
	v, ok := c.Env[key]
	return v, ok
}

// Environ returns the snapshot as sorted KEY=VALUE pairs for exec.Cmd.Env.
func (c *Config) Environ() []string {
	out := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// ManifestPath returns the project package.json path.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.WorkDir, ManifestFile)
}

// LockfilePath returns the project lockfile path.
func (c *Config) LockfilePath() string {
	return filepath.Join(c.WorkDir, LockfileFile)
}

// ModulesPath returns the local installation root.
func (c *Config) ModulesPath() string {
	return filepath.Join(c.WorkDir, ModulesDir)
}

// GlobalModulesPath returns the per-user installation root.
func (c *Config) GlobalModulesPath() string {
	return filepath.Join(c.HomeDir, GlobalDir, ModulesDir)
}
