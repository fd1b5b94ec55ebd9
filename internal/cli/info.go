package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gpack/pkg/registry"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <package[@version]>",
		Short: "Show registry metadata for a package",
		Example: `  gpack info lodash
  gpack info @types/node@20.11.0 --json
  gpack info file:../shared`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			spec, err := parseArg(args[0])
			if err != nil {
				return err
			}
			client, err := c.newClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			meta, err := client.Resolve(ctx, spec.Name, spec.Version())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(meta)
			}
			printMetadata(client.BaseURL(), meta)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw metadata as JSON")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

func printMetadata(base string, meta *registry.Metadata) {
	fmt.Fprintln(stdout, StyleTitle.Render(meta.Name)+" "+StyleHighlight.Render(meta.Version))
	if meta.Description != "" {
		printDetail("%s", meta.Description)
	}
	fmt.Fprintln(stdout)

	if meta.License != "" {
		printKeyValue("license", meta.License)
	}
	if meta.Homepage != "" {
		printKeyValue("homepage", StyleLink.Render(meta.Homepage))
	}
	switch {
	case meta.Resolved != "":
		printKeyValue("path", meta.Resolved)
	case meta.Dist.Tarball != "":
		printKeyValue("tarball", meta.Dist.Tarball)
	default:
		printKeyValue("tarball", registry.TarballURL(base, meta.Name, meta.Version))
	}

	if len(meta.Bin) > 0 {
		fmt.Fprintln(stdout)
		printTable([]string{"Command", "Path"}, mapRows(meta.Bin))
	}

	fmt.Fprintln(stdout)
	if len(meta.Dependencies) == 0 {
		printInfo("No dependencies")
		return
	}
	printTable([]string{"Dependency", "Range"}, mapRows(meta.Dependencies))
}

// mapRows turns m into table rows sorted by key.
func mapRows(m map[string]string) [][]string {
	rows := make([][]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		rows = append(rows, []string{k, m[k]})
	}
	return rows
}
