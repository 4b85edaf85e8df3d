package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/juancast26/storesim/internal/simulation/catalog"
	"github.com/juancast26/storesim/internal/simulation/output"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the simulated product catalog",
		Long: `Catalog prints the electronics products orders are drawn from. Prices are
random between 150,000 and 5,000,000 COP; use --seed for a stable listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetInt64("seed")
			jsonOutput, _ := cmd.Flags().GetBool("json")
			noColor, _ := cmd.Flags().GetBool("no-color")

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			products := catalog.NewCatalog(rand.New(rand.NewSource(seed))).Products()

			if jsonOutput {
				data, err := json.MarshalIndent(products, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal catalog: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			output.NewConsole(output.ConsoleConfig{
				Writer:  cmd.OutOrStdout(),
				NoColor: noColor,
			}).PrintCatalog(products)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Random seed for prices (0 = time based)")
	cmd.Flags().Bool("json", false, "Output the catalog as JSON")
	cmd.Flags().Bool("no-color", false, "Disable colored output")

	return cmd
}
