package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/juancast26/storesim/internal/simulation/batch"
	"github.com/juancast26/storesim/internal/simulation/catalog"
	"github.com/juancast26/storesim/internal/simulation/config"
	"github.com/juancast26/storesim/internal/simulation/executor"
	"github.com/juancast26/storesim/internal/simulation/metrics"
	"github.com/juancast26/storesim/internal/simulation/output"
	"github.com/juancast26/storesim/internal/simulation/report"
	"github.com/juancast26/storesim/internal/simulation/threshold"
	"github.com/juancast26/storesim/internal/simulation/workload"
)

// errThresholdsFailed makes the process exit with status 1.
var errThresholdsFailed = errors.New("one or more thresholds failed")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated batch of store requests",
		Long: `Run submits N simulated requests with at most C in flight and prints the
result. Settings come from, in increasing precedence: workload defaults, the
config file, STORESIM_* environment variables and command-line flags.

Defaults:
  orders  latency 50-250ms, 20000 CPU iterations, failure probability 0.05
  users   latency 20-100ms, 5000 CPU iterations, failure probability 0.05
  both    500 tasks, concurrency 20

Examples:
  storesim run --workload orders -n 1000 -C 50
  storesim run -c black-friday.yaml --threshold "task_duration:p95 < 300ms"
  storesim run --workload users --seed 42 --json -o report.json`,
		Args: cobra.NoArgs,
		RunE: runSimulation,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file (YAML or JSON)")
	cmd.Flags().String("name", "", "Run name used in reports")
	cmd.Flags().String("workload", "", "Workload: orders or users")
	cmd.Flags().IntP("tasks", "n", 0, "Number of simulated requests")
	cmd.Flags().IntP("concurrency", "C", 0, "Maximum requests in flight")
	cmd.Flags().String("latency-min", "", "Minimum simulated latency (e.g. 50ms, or integer milliseconds)")
	cmd.Flags().String("latency-max", "", "Maximum simulated latency (e.g. 250ms, or integer milliseconds)")
	cmd.Flags().Float64("failure-rate", 0, "Probability in [0,1] that a request fails")
	cmd.Flags().Int("cpu-iterations", 0, "CPU work per request, in loop iterations")
	cmd.Flags().Int64("seed", 0, "Random seed for a reproducible run (0 = unseeded)")
	cmd.Flags().StringArray("threshold", nil, "Pass/fail threshold as metric:expression, repeatable (e.g. \"task_failed:rate < 0.1\")")

	cmd.Flags().Bool("json", false, "Output the report as JSON")
	cmd.Flags().StringP("output", "o", "", "Output file for the JSON report (default: stdout)")
	cmd.Flags().BoolP("quiet", "q", false, "Disable live progress output, show only the final status")
	cmd.Flags().BoolP("verbose", "v", false, "Print the resolved settings before running")
	cmd.Flags().Duration("interval", time.Second, "Progress update interval")

	return cmd
}

// runOptions are the presentation settings of a run.
type runOptions struct {
	stdout     io.Writer
	stderr     io.Writer
	jsonOutput bool
	outputPath string
	quiet      bool
	verbose    bool
	interval   time.Duration
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	runCfg, err := cfg.ToRunConfig()
	if err != nil {
		return err
	}

	opts := runOptions{
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	opts.jsonOutput, _ = cmd.Flags().GetBool("json")
	opts.outputPath, _ = cmd.Flags().GetString("output")
	opts.quiet, _ = cmd.Flags().GetBool("quiet")
	opts.verbose, _ = cmd.Flags().GetBool("verbose")
	opts.interval, _ = cmd.Flags().GetDuration("interval")

	rep, err := execute(cfg, runCfg, opts)
	if err != nil {
		return err
	}
	if !rep.Passed {
		return errThresholdsFailed
	}
	return nil
}

// resolveConfig layers the config file, the environment and the flags that
// were set explicitly, then fills defaults and validates the result.
func resolveConfig(cmd *cobra.Command, lookup func(string) (string, bool)) (*config.TestConfig, error) {
	cfg := &config.TestConfig{}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.TestConfig) error {
	flags := cmd.Flags()

	if flags.Changed("name") {
		cfg.Name, _ = flags.GetString("name")
	}
	if flags.Changed("workload") {
		cfg.Workload, _ = flags.GetString("workload")
	}

	ints := []struct {
		flag string
		dst  **int
	}{
		{"tasks", &cfg.Run.Tasks},
		{"concurrency", &cfg.Run.Concurrency},
		{"cpu-iterations", &cfg.Run.CPUIterations},
	}
	for _, f := range ints {
		if flags.Changed(f.flag) {
			n, _ := flags.GetInt(f.flag)
			*f.dst = &n
		}
	}

	if flags.Changed("failure-rate") {
		p, _ := flags.GetFloat64("failure-rate")
		cfg.Run.FailureProbability = &p
	}
	if flags.Changed("seed") {
		cfg.Run.Seed, _ = flags.GetInt64("seed")
	}

	for _, flag := range []string{"latency-min", "latency-max"} {
		if !flags.Changed(flag) {
			continue
		}
		v, _ := flags.GetString(flag)
		d, err := config.ParseDurationString(v)
		if err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		if cfg.Run.Latency == nil {
			cfg.Run.Latency = &config.LatencyConfig{}
		}
		if flag == "latency-min" {
			cfg.Run.Latency.Min = config.NewDuration(d)
		} else {
			cfg.Run.Latency.Max = config.NewDuration(d)
		}
	}

	exprs, _ := flags.GetStringArray("threshold")
	for _, expr := range exprs {
		if cfg.Thresholds == nil {
			cfg.Thresholds = &threshold.Criteria{}
		}
		if err := cfg.Thresholds.AddFlag(expr); err != nil {
			return fmt.Errorf("--threshold: %w", err)
		}
	}

	return nil
}

// execute runs the configured workload and emits the console summary and
// the JSON report.
func execute(cfg *config.TestConfig, runCfg batch.RunConfig, opts runOptions) (*report.Report, error) {
	kind := workload.Kind(cfg.Workload)

	sim, err := workload.NewSimulator(runCfg.Profile(), workload.WithSeed(runCfg.Seed))
	if err != nil {
		return nil, err
	}

	// JSON on stdout keeps the console on stderr so the document stays parseable.
	consoleOut := opts.stdout
	if opts.jsonOutput && opts.outputPath == "" {
		consoleOut = opts.stderr
	}
	console := output.NewConsole(output.ConsoleConfig{
		Name:     cfg.Name,
		Workload: cfg.Workload,
		Unit:     string(kind),
		Writer:   consoleOut,
		Quiet:    opts.quiet,
	})

	if opts.verbose && !opts.quiet {
		printSettings(consoleOut, cfg, runCfg)
	}

	engine := metrics.NewEngine()
	defer engine.Stop()

	var summary batch.Summary
	switch kind {
	case workload.KindOrders:
		cat := catalog.NewCatalog(sim)
		summary, err = runBatch[catalog.Order](cfg.Name, runCfg, catalog.OrderFactory(cat, sim), sim, engine, console, opts.interval)
	case workload.KindUsers:
		summary, err = runBatch[catalog.User](cfg.Name, runCfg, catalog.UserFactory(), sim, engine, console, opts.interval)
	default:
		err = fmt.Errorf("unknown workload %q", cfg.Workload)
	}
	if err != nil {
		return nil, err
	}
	engine.Stop()

	rep := report.Build(report.Meta{
		Name:        cfg.Name,
		Description: cfg.Description,
		Workload:    cfg.Workload,
	}, runCfg, summary, engine, cfg.Thresholds)

	console.PrintSummary(rep)

	switch {
	case opts.outputPath != "":
		if err := rep.Save(opts.outputPath); err != nil {
			return nil, err
		}
		fmt.Fprintf(consoleOut, "Report written to: %s\n", opts.outputPath)
	case opts.jsonOutput:
		if err := rep.WriteJSON(opts.stdout); err != nil {
			return nil, err
		}
	}

	return rep, nil
}

// runBatch runs one batch while a goroutine feeds the console with live
// progress.
func runBatch[P any](
	name string,
	cfg batch.RunConfig,
	newPayload batch.PayloadFunc[P],
	sim *workload.Simulator,
	engine *metrics.Engine,
	console *output.Console,
	interval time.Duration,
) (batch.Summary, error) {
	b, err := batch.New(cfg, newPayload,
		batch.WithName[P](name),
		batch.WithSimulator[P](sim),
		batch.WithMetrics[P](engine),
		batch.WithLogger[P](slog.Default()),
	)
	if err != nil {
		return batch.Summary{}, err
	}

	console.PrintHeader(cfg.Tasks, cfg.Concurrency)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchProgress(b.Executor(), engine, console, interval, done)
	}()

	result, err := b.Run()
	close(done)
	wg.Wait()
	if err != nil {
		return batch.Summary{}, err
	}
	return result.Summary(), nil
}

// watchProgress renders progress every interval until done is closed. Ticks
// before the executor starts are skipped.
func watchProgress(exec executor.Executor, engine *metrics.Engine, console *output.Console, interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !exec.IsRunning() {
				continue
			}
			console.Progress(output.StatsFromSnapshot(exec.GetStats(), engine.GetSnapshot()))
		}
	}
}

func printSettings(w io.Writer, cfg *config.TestConfig, runCfg batch.RunConfig) {
	fmt.Fprintf(w, "Starting run: %s\n", cfg.Name)
	fmt.Fprintf(w, "  Workload:            %s\n", cfg.Workload)
	fmt.Fprintf(w, "  Tasks:               %d\n", runCfg.Tasks)
	fmt.Fprintf(w, "  Concurrency:         %d\n", runCfg.Concurrency)
	fmt.Fprintf(w, "  Latency:             %s - %s\n", runCfg.Latency.Min, runCfg.Latency.Max)
	fmt.Fprintf(w, "  CPU iterations:      %d\n", runCfg.CPUIterations)
	fmt.Fprintf(w, "  Failure probability: %.3f\n", runCfg.FailureProbability)
	if runCfg.Seed != 0 {
		fmt.Fprintf(w, "  Seed:                %d\n", runCfg.Seed)
	}
	fmt.Fprintln(w)
}
