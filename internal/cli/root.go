package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "storesim",
		Short:   "A micro load generator that simulates an electronics store backend",
		Version: version,
		Long: `storesim submits a batch of simulated store requests (orders or user
sign-ups) with bounded concurrency. Each request sleeps for a random latency,
burns a fixed amount of CPU and fails with a configurable probability. The run
ends with a throughput, error and latency summary, optionally checked against
thresholds and written as a JSON report.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupEnvironment,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("env-file", "", "Load STORESIM_* variables from a .env file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())

	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}

// setupEnvironment loads the .env file and installs the default logger.
func setupEnvironment(cmd *cobra.Command, args []string) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(cmd.ErrOrStderr(), levelName)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLogger builds a text logger writing to w at the named level.
func newLogger(w io.Writer, levelName string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelName))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: use debug, info, warn or error", levelName)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
