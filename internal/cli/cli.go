// Package cli implements the gpack command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gpack/pkg/buildinfo"
	"github.com/matzehuels/gpack/pkg/cache"
	"github.com/matzehuels/gpack/pkg/config"
	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/install"
	"github.com/matzehuels/gpack/pkg/registry"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Options overrides the ambient inputs of configuration loading.
	// The zero value reads the current process.
	Options config.LoadOptions

	// Progress receives download progress bars. New sets it to stderr
	// when stderr is a terminal.
	Progress io.Writer

	flags globalFlags
	cfg   *config.Config
}

type globalFlags struct {
	registry    string
	configFile  string
	concurrency int
	noCache     bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.Progress = w
	}
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gpack",
		Short: "gpack manages node packages",
		Long: `gpack is a package manager for node projects. It resolves the dependencies
declared in package.json against an npm-compatible registry, installs them
into nested node_modules directories, records the result in gpack-lock.json
and runs package scripts.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.registry, "registry", "", "registry base URL (default "+config.DefaultRegistry+")")
	pf.StringVar(&c.flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/gpack/config.toml)")
	pf.IntVar(&c.flags.concurrency, "concurrency", 0, "max parallel registry requests")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the registry metadata cache")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves the configuration once per invocation. Flags take
// precedence over the file and the environment.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	opts := c.Options
	if c.flags.configFile != "" {
		opts.ConfigFile = c.flags.configFile
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	if c.flags.registry != "" {
		cfg.Registry = c.flags.registry
	}
	if c.flags.concurrency > 0 {
		cfg.Concurrency = c.flags.concurrency
	}
	if c.flags.noCache {
		cfg.NoCache = true
	}
	c.cfg = cfg
	if c.Logger.GetLevel() <= log.DebugLevel {
		registerDebugHooks(c.Logger)
	}
	c.Logger.Debug("configuration loaded", "workdir", cfg.WorkDir, "registry", cfg.Registry)
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Component Factories
// =============================================================================

// newClient creates a registry client backed by the configured cache.
// Callers must Close it.
func (c *CLI) newClient(ctx context.Context) (*registry.Client, error) {
	cc, err := newCache(ctx, c.cfg, c.Logger)
	if err != nil {
		return nil, err
	}
	return registry.NewClient(registry.Options{
		BaseURL:  c.cfg.Registry,
		WorkDir:  c.cfg.WorkDir,
		Cache:    cc,
		CacheTTL: c.cfg.CacheTTL,
		Logger:   c.Logger,
	}), nil
}

// newCache selects the metadata cache backend. An unreachable Redis falls
// back to the file cache.
func newCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.Cache, error) {
	if cfg.NoCache {
		return cache.NewNullCache(), nil
	}
	if cfg.Redis != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.Redis})
		if err == nil {
			return rc, nil
		}
		logger.Warn("redis cache unavailable, using file cache", "addr", cfg.Redis, "err", err)
	}
	if cfg.CacheDir == "" {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(cfg.CacheDir)
}

// resolve builds the dependency tree and logs how long it took.
func (c *CLI) resolve(ctx context.Context, client *registry.Client, dependencies map[string]string) (*deps.Tree, error) {
	prog := newProgress(c.Logger)

	var spin *Spinner
	if c.Progress != nil && c.Logger.GetLevel() > log.DebugLevel {
		spin = newSpinnerWithContext(ctx, c.Progress, "Resolving dependencies...")
		spin.Start()
	}

	r := deps.NewResolver(client, deps.Options{Concurrency: c.cfg.Concurrency, Logger: c.Logger})
	tree, err := r.Build(ctx, dependencies)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, err
	}
	prog.done(pluralize(deps.Count(tree), "Resolved %d package", "Resolved %d packages"))
	return tree, nil
}

func (c *CLI) newInstaller(client *registry.Client) *install.Installer {
	return install.New(client, install.Options{Logger: c.Logger, Progress: c.Progress})
}
