package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/treescan/pkg/report"
)

// reportCommand creates the report command for re-rendering saved results.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		output string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "report [result.json]",
		Short: "Render a saved result as a text report",
		Long: `Render a saved result as a text report.

The report command reads a JSON result written by 'run --json' and prints
the same text report 'run' produces. Use --json to normalize the document
instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := report.ReadJSONFile(args[0])
			if err != nil {
				return fmt.Errorf("load result %s: %w", args[0], err)
			}
			loggerFromContext(cmd.Context()).Debug("loaded result", "run_id", doc.RunID, "cuts", len(doc.Cuts))

			if output == "" {
				return renderDocument(doc, os.Stdout, asJSON)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := renderDocument(doc, f, asJSON); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Wrote report for run %s", doc.RunID)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON instead of text")

	return cmd
}
