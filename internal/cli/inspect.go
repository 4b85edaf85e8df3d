package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juancast26/storesim/internal/simulation/report"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <report.json>",
		Short: "Query values from a saved JSON report",
		Long: `Inspect prints values from a report written by "storesim run -o". Paths use
gjson syntax or simple JSONPath.

Examples:
  storesim inspect report.json --path summary.throughput
  storesim inspect report.json -p '$.latency.p95' -p passed
  storesim inspect report.json -p 'thresholds.#(passed==false)#.expression'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, _ := cmd.Flags().GetStringArray("path")
			if len(paths) == 0 {
				return errors.New("at least one --path is required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			for _, path := range paths {
				value, err := report.Query(data, path)
				if err != nil {
					return err
				}
				if len(paths) > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, value)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), value)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayP("path", "p", nil, "Path to extract, repeatable")

	return cmd
}
