package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/lockfile"
	"github.com/matzehuels/gpack/pkg/manifest"
	"github.com/matzehuels/gpack/pkg/registry"
)

// installFlags holds flags for the install command.
type installFlags struct {
	global  bool
	force   bool
	save    bool
	saveDev bool
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:     "install [package[@version]...]",
		Aliases: []string{"i", "add"},
		Short:   "Install dependencies or add packages",
		Long: `Install the project's dependencies, or add the named packages.

Without arguments the lockfile is installed as recorded. When there is no
lockfile, dependencies and devDependencies from package.json are resolved
and the result is written to gpack-lock.json first.

With arguments each package is added to package.json (dependencies, or
devDependencies with --save-dev), the lockfile is regenerated and the
project is installed. Global installs go to ~/.gpack/node_modules and
leave the project untouched.`,
		Example: `  # Install everything in package.json
  gpack install

  # Add packages
  gpack install lodash @types/node@20.11.0
  gpack install -d jest
  gpack install file:../shared

  # Install a command globally
  gpack install -g typescript`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				if flags.global {
					return errors.New(errors.ErrCodeInvalidInput, "--global needs at least one package name")
				}
				return c.installAll(ctx, flags.force)
			}
			specs := make([]deps.Specifier, len(args))
			for i, arg := range args {
				spec, err := parseArg(arg)
				if err != nil {
					return err
				}
				specs[i] = spec
			}
			for _, spec := range specs {
				if err := c.installOne(ctx, spec, flags); err != nil {
					return err
				}
				printDone()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&flags.global, "global", "g", false, "install into ~/.gpack/node_modules")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "reinstall packages that are already present")
	cmd.Flags().BoolVarP(&flags.save, "save", "s", true, "save to dependencies (default)")
	cmd.Flags().BoolVarP(&flags.saveDev, "save-dev", "d", false, "save to devDependencies")

	return cmd
}

// installAll installs the locked tree, resolving and locking the manifest
// first when no lockfile exists.
func (c *CLI) installAll(ctx context.Context, force bool) error {
	client, err := c.newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	lock := lockfile.New(c.cfg.LockfilePath())
	tree, err := lock.Load()
	if err != nil {
		return err
	}

	if tree != nil {
		c.Logger.Debug("using lockfile", "path", lock.Path())
	} else {
		m, err := manifest.Read(c.cfg.ManifestPath())
		if err != nil {
			return err
		}
		tree, err = c.resolve(ctx, client, m.AllDependencies())
		if err != nil {
			return err
		}
		if err := lock.Save(tree); err != nil {
			return err
		}
	}

	if err := c.newInstaller(client).Install(ctx, tree, c.cfg.ModulesPath(), force); err != nil {
		return err
	}
	printDone()
	return nil
}

// installOne adds a single package, locally or globally.
func (c *CLI) installOne(ctx context.Context, spec deps.Specifier, flags installFlags) error {
	client, err := c.newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	meta, err := client.Resolve(ctx, spec.Name, spec.Version())
	if err != nil {
		return err
	}
	name, rng := meta.Name, savedRange(spec, meta)

	if flags.global {
		return c.installGlobal(ctx, client, name, rng, flags.force)
	}

	m, err := manifest.Read(c.cfg.ManifestPath())
	if err != nil {
		return err
	}
	m.AddDependency(name, rng, flags.saveDev)

	tree, err := c.resolve(ctx, client, m.AllDependencies())
	if err != nil {
		return err
	}
	if err := lockfile.New(c.cfg.LockfilePath()).Save(tree); err != nil {
		return err
	}
	if err := c.newInstaller(client).Install(ctx, tree, c.cfg.ModulesPath(), flags.force); err != nil {
		return err
	}
	return manifest.Write(c.cfg.ManifestPath(), m)
}

func (c *CLI) installGlobal(ctx context.Context, client *registry.Client, name, rng string, force bool) error {
	root := c.cfg.GlobalModulesPath()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", root)
	}
	tree, err := c.resolve(ctx, client, map[string]string{name: rng})
	if err != nil {
		return err
	}
	return c.newInstaller(client).Install(ctx, tree, root, force)
}

// parseArg parses a package argument typed by the user. Registry names must
// be valid npm names; local paths are checked when they are read.
func parseArg(arg string) (deps.Specifier, error) {
	spec := deps.ParseSpecifier(arg)
	if registry.IsLocal(spec.Name) {
		return spec, nil
	}
	if err := errors.ValidateNpmPackageName(spec.Name); err != nil {
		return deps.Specifier{}, err
	}
	return spec, nil
}

// savedRange is the range recorded in package.json: the local path, the
// requested range, or a caret range on the resolved version.
func savedRange(spec deps.Specifier, meta *registry.Metadata) string {
	switch {
	case meta.Resolved != "":
		return meta.Resolved
	case spec.Range != "" && spec.Range != deps.Latest:
		return spec.Range
	default:
		return "^" + meta.Version
	}
}
