package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/samples"
)

func (c *CLI) samplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "samples [name]",
		Short: "List the built-in samples or print one",
		Example: `  objgraph samples
  objgraph samples constructor > constructor.js`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return samples.Builtin().Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := samples.Builtin()
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), samplesTable(catalog))
				return nil
			}

			s, ok := catalog.Lookup(args[0])
			if !ok {
				return apperrors.New(apperrors.ErrCodeSampleNotFound,
					"no sample named %q (available: %s)", args[0], strings.Join(catalog.Names(), ", "))
			}
			fmt.Fprint(cmd.OutOrStdout(), s.Code)
			return nil
		},
	}
}

func samplesTable(catalog *samples.Catalog) string {
	rows := make([][]string, 0, len(catalog.Samples))
	for _, s := range catalog.Samples {
		title := s.Title
		if s.Name == catalog.Default {
			title += styleFaint.Render(" (default)")
		}
		rows = append(rows, []string{s.Name, title})
	}
	return renderTable([]string{"Name", "Title"}, rows)
}
