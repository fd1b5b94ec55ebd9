package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/lockfile"
	"github.com/matzehuels/gpack/pkg/manifest"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var (
		flat  bool
		depth int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the locked dependency tree",
		Example: `  gpack list
  gpack list --depth 1
  gpack list --flat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lock := lockfile.New(c.cfg.LockfilePath())
			locked, err := lock.Load()
			if err != nil {
				return err
			}
			if locked == nil {
				return errors.New(errors.ErrCodeInvalidLockfile, "no lockfile at %s", lock.Path()).
					WithHints("run gpack install to create it")
			}

			if flat {
				printFlat(deps.Flatten(locked))
				return nil
			}
			fmt.Fprintln(stdout, renderTree(c.rootLabel(), locked, depth))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flat, "flat", false, "list each name@version once")
	cmd.Flags().IntVar(&depth, "depth", 0, "limit the tree depth (0 = unlimited)")
	return cmd
}

// rootLabel names the project, falling back to the lockfile name.
func (c *CLI) rootLabel() string {
	if m, err := manifest.Read(c.cfg.ManifestPath()); err == nil && m.Name != "" {
		if m.Version != "" {
			return m.Name + "@" + m.Version
		}
		return m.Name
	}
	return c.cfg.LockfilePath()
}

// renderTree draws t below root. depth <= 0 draws every level.
func renderTree(root string, t *deps.Tree, depth int) string {
	out := tree.Root(StyleTitle.Render(root)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim)
	addChildren(out, t, depth, 1)
	return out.String()
}

func addChildren(parent *tree.Tree, t *deps.Tree, depth, level int) {
	for _, node := range t.All() {
		label := node.Name + " " + StyleDim.Render(node.Version)
		if node.IsLocal() {
			label += " " + StyleDim.Render("("+node.Resolved+")")
		}
		if node.Dependencies.Len() == 0 || (depth > 0 && level >= depth) {
			parent.Child(label)
			continue
		}
		sub := tree.Root(label)
		addChildren(sub, node.Dependencies, depth, level+1)
		parent.Child(sub)
	}
}

func printFlat(refs []deps.Ref) {
	for _, ref := range refs {
		fmt.Fprintln(stdout, ref.Name+" "+StyleDim.Render(ref.Version))
	}
	printDetail("%s", pluralize(len(refs), "%d package", "%d packages"))
}
