package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juancast26/storesim/internal/simulation/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config_file...>",
		Short: "Check run configuration files without running them",
		Long: `Validate checks one or more configuration files against the run schema and
then checks the resolved settings (after workload defaults) for consistency.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			showSchema, _ := cmd.Flags().GetBool("schema")
			if showSchema {
				fmt.Fprintln(cmd.OutOrStdout(), config.SchemaJSON())
				return nil
			}
			if len(args) == 0 {
				return errors.New("at least one config file is required")
			}

			failed := 0
			for _, path := range args {
				if err := validateFile(path); err != nil {
					failed++
					reportInvalid(cmd.OutOrStdout(), path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d config files are invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().Bool("schema", false, "Print the JSON Schema instead of validating")

	return cmd
}

// validateFile runs the schema and semantic checks on one file.
func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := config.ValidateSchema(data, path); err != nil {
		return err
	}

	cfg, err := config.ParseConfig(data, path)
	if err != nil {
		return err
	}
	config.ApplyDefaults(cfg)
	return cfg.Validate()
}

func reportInvalid(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "✗ %s\n", path)

	var verrs *config.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs.Errors {
			fmt.Fprintf(w, "    - %s\n", e.Error())
		}
		return
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
