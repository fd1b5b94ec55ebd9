package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/gpack/pkg/bin"
	"github.com/matzehuels/gpack/pkg/manifest"
	"github.com/matzehuels/gpack/pkg/script"
)

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [script|command] [args...]",
		Short: "Run a package script",
		Long: `Run a script from package.json, or an installed command.

Scripts are split on "&&" and each part runs in order. ${NAME} placeholders
are filled from the environment (including the project .env file) before
anything starts. Commands are looked up on PATH, then in node_modules/.bin,
then in ~/.gpack/node_modules/.bin.

Without arguments the available scripts are listed.`,
		Example: `  gpack run
  gpack run build
  gpack run test --watch
  gpack run tsc --version`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Read(c.cfg.ManifestPath())
			if err != nil {
				return err
			}
			runner := script.New(script.Options{
				Scripts: m.Scripts,
				Dir:     c.cfg.WorkDir,
				Env:     c.cfg.Env,
				Finder:  bin.NewLocator(c.cfg),
				Stdout:  stdout,
				Logger:  loggerFromContext(cmd.Context()),
			})

			if len(args) == 0 {
				printScripts(runner.Scripts())
				return nil
			}
			return runner.Run(cmd.Context(), args[0], args[1:])
		},
	}

	// Everything after the script name belongs to the script.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func printScripts(scripts []script.Script) {
	if len(scripts) == 0 {
		printInfo("No scripts defined in package.json")
		return
	}
	rows := make([][]string, 0, len(scripts))
	for _, s := range scripts {
		rows = append(rows, []string{s.Name, s.Command})
	}
	printTable([]string{"Script", "Command"}, rows)
	printNextStep("Run one with", "gpack run <script>")
}
