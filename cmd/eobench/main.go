package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/eobench/eobench/pkg/config"
	"github.com/eobench/eobench/pkg/endpoint"
	"github.com/eobench/eobench/pkg/probe"
	"github.com/eobench/eobench/pkg/report"
	"github.com/eobench/eobench/pkg/scenario"
	"github.com/eobench/eobench/pkg/stats"
)

var version = "dev" // Set by -ldflags during build

func main() {
	// Define global flags
	var (
		showVersion bool
		showHelp    bool
		debug       bool
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")

	// Stop parsing at first non-flag argument (the subcommand)
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	// Handle version
	if showVersion {
		fmt.Printf("eobench version %s\n", version)
		os.Exit(0)
	}

	// Get subcommand
	args := pflag.Args()
	if len(args) == 0 || showHelp {
		printHelp()
		os.Exit(0)
	}

	subcommand := args[0]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, debug)

	// Execute subcommand
	switch subcommand {
	case "probe-single":
		handleProbeSingle(cfg, log, args[1:])
	case "probe-batch":
		handleProbeBatch(cfg, log, args[1:])
	case "run-scenario":
		handleRunScenario(cfg, log, args[1:])
	case "summarize-runs":
		handleSummarizeRuns(cfg, log, args[1:])
	case "summarize-probes":
		handleSummarizeProbes(cfg, log, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func newLogger(level string, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	if debug {
		parsed = logrus.DebugLevel
	}
	log.SetLevel(parsed)
	return log
}

func handleProbeSingle(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := pflag.NewFlagSet("probe-single", pflag.ExitOnError)
	url := fs.String("url", "", "Endpoint URL to probe (required)")
	name := fs.String("name", "", "Endpoint name (default: URL host)")
	timeout := fs.Duration("timeout", cfg.ProbeTimeout.Std(), "Per-request timeout")
	count := fs.Int("count", 1, "Number of probes to issue")
	out := fs.String("out", "", "Also write results as a CSV table to this path")

	fs.Parse(args)

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: --url is required\n")
		os.Exit(1)
	}
	if *count < 1 {
		fmt.Fprintf(os.Stderr, "Error: --count must be at least 1\n")
		os.Exit(1)
	}

	ep := endpoint.Endpoint{Name: *name, URL: *url}
	p := probe.New(*timeout, cfg.Headers, log)

	results := make([]probe.Result, 0, *count)
	for i := 0; i < *count; i++ {
		result := p.Probe(context.Background(), ep)
		report.RenderProbeResult(os.Stdout, result)
		if *count > 1 && i < *count-1 {
			fmt.Println()
		}
		results = append(results, result)
	}

	if *out != "" {
		if err := report.WriteProbeTable(*out, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing probe table: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d probe result(s) to %s\n", len(results), *out)
	}
}

func handleProbeBatch(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := pflag.NewFlagSet("probe-batch", pflag.ExitOnError)
	endpointsFile := fs.String("endpoints", "", "YAML file listing endpoints to probe (required)")
	timeout := fs.Duration("timeout", cfg.ProbeTimeout.Std(), "Per-request timeout")
	out := fs.String("out", "", "Output CSV path (default: dated file in output dir)")

	fs.Parse(args)

	if *endpointsFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --endpoints is required\n")
		os.Exit(1)
	}

	endpoints, err := endpoint.LoadFile(config.ExpandPath(*endpointsFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading endpoints: %v\n", err)
		os.Exit(1)
	}
	if len(endpoints) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no endpoints in %s\n", *endpointsFile)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = report.DatedFilename(config.ExpandPath(cfg.OutputDir), "probes")
	}

	p := probe.New(*timeout, cfg.Headers, log)
	results := p.ProbeAll(context.Background(), endpoints)

	if err := report.WriteProbeTable(outPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing probe table: %v\n", err)
		os.Exit(1)
	}

	ok := 0
	for _, r := range results {
		if r.Success() {
			ok++
		}
	}
	fmt.Printf("Probed %d endpoint(s), %d reachable, results in %s\n", len(results), ok, outPath)
}

func handleRunScenario(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := pflag.NewFlagSet("run-scenario", pflag.ExitOnError)
	api := fs.String("api", "", "Backend API URL (required)")
	scenarioFile := fs.String("scenario", "", "Process-graph JSON file (required)")
	out := fs.String("out", "", "Record file path (default: generated name in records dir)")
	budget := fs.Duration("budget", cfg.PollBudget.Std(), "Total polling budget")
	interval := fs.Duration("interval", cfg.PollInterval.Std(), "Initial poll interval")
	maxInterval := fs.Duration("max-interval", cfg.PollMaxInterval.Std(), "Poll backoff ceiling")
	retries := fs.Int("retries", cfg.PollRetries, "Consecutive transient poll failures tolerated")

	fs.Parse(args)

	if *api == "" {
		fmt.Fprintf(os.Stderr, "Error: --api is required\n")
		os.Exit(1)
	}
	if *scenarioFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --scenario is required\n")
		os.Exit(1)
	}

	sc, err := scenario.Load(config.ExpandPath(*scenarioFile), *api)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
		os.Exit(1)
	}

	client := scenario.NewClient(*api, cfg.RequestTimeout.Std(), cfg.Headers)
	runner := scenario.NewRunner(client, sc, scenario.RunnerOptions{
		PollInterval:    *interval,
		PollMaxInterval: *maxInterval,
		PollBudget:      *budget,
		PollRetries:     *retries,
		RecordPath:      *out,
		RecordDir:       config.ExpandPath(cfg.RecordsDir),
	}, log)

	exec := runner.Run(context.Background())

	fmt.Printf("Scenario:  %s\n", exec.Scenario)
	fmt.Printf("Backend:   %s\n", exec.BackendName)
	if exec.JobID != "" {
		fmt.Printf("Job:       %s\n", exec.JobID)
	}
	fmt.Printf("Status:    %s\n", exec.Status)
	fmt.Printf("Submit:    %dms\n", exec.PhaseMs[scenario.PhaseSubmit])
	fmt.Printf("Queue:     %dms\n", exec.PhaseMs[scenario.PhaseQueue])
	fmt.Printf("Running:   %dms\n", exec.PhaseMs[scenario.PhaseRunning])
	fmt.Printf("Total:     %dms\n", exec.PhaseMs[scenario.PhaseTotal])
	if exec.ResultLocation != "" {
		fmt.Printf("Results:   %s\n", exec.ResultLocation)
	}
	if exec.Error != "" {
		fmt.Printf("Error:     %s\n", exec.Error)
	}

	if exec.Status != scenario.StatusCompleted {
		os.Exit(1)
	}
}

func handleSummarizeRuns(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := pflag.NewFlagSet("summarize-runs", pflag.ExitOnError)
	out := fs.String("out", "", "Output CSV path (default: dated file in output dir)")
	format := fs.String("format", "csv", "Output format: csv, table")

	fs.Parse(args)

	locations := fs.Args()
	if len(locations) == 0 {
		locations = []string{config.ExpandPath(cfg.RecordsDir)}
	}

	rows, err := report.AggregateRuns(locations, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error aggregating runs: %v\n", err)
		os.Exit(1)
	}

	switch *format {
	case "table":
		report.RenderRuns(os.Stdout, rows)
	case "csv":
		outPath := *out
		if outPath == "" {
			outPath = report.DatedFilename(config.ExpandPath(cfg.OutputDir), "runs")
		}
		if err := report.WriteRunTable(outPath, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing run table: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d run(s) to %s\n", len(rows), outPath)
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s' (valid: csv, table)\n", *format)
		os.Exit(1)
	}
}

func handleSummarizeProbes(cfg *config.Config, log *logrus.Logger, args []string) {
	fs := pflag.NewFlagSet("summarize-probes", pflag.ExitOnError)
	out := fs.String("out", "", "Also write statistics as a CSV table to this path")
	format := fs.String("format", "table", "Output format: csv, table")

	fs.Parse(args)

	locations := fs.Args()
	if len(locations) == 0 {
		locations = []string{config.ExpandPath(cfg.OutputDir)}
	}

	rows, err := report.ReadTimingRows(locations, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading timing tables: %v\n", err)
		os.Exit(1)
	}

	summaries := stats.Compute(rows)

	switch *format {
	case "table":
		report.RenderStats(os.Stdout, summaries)
	case "csv":
		if *out == "" {
			*out = report.DatedFilename(config.ExpandPath(cfg.OutputDir), "stats")
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s' (valid: csv, table)\n", *format)
		os.Exit(1)
	}

	if *out != "" {
		if err := report.WriteStatsTable(*out, summaries); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing statistics table: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote statistics for %d group(s) to %s\n", len(summaries), *out)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: eobench [OPTIONS] COMMAND [ARGS...]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  probe-single      Probe one endpoint and print the result\n")
	fmt.Fprintf(os.Stderr, "  probe-batch       Probe a list of endpoints and write a CSV table\n")
	fmt.Fprintf(os.Stderr, "  run-scenario      Submit a scenario to a backend and track the job\n")
	fmt.Fprintf(os.Stderr, "  summarize-runs    Aggregate persisted run records into one table\n")
	fmt.Fprintf(os.Stderr, "  summarize-probes  Compute statistics over timing tables\n")
}

func printHelp() {
	fmt.Printf("eobench - openEO backend benchmarking\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Probe openEO-style backends for health and latency, run process-graph\n")
	fmt.Printf("  scenarios as batch jobs with per-phase timing, and fold the persisted\n")
	fmt.Printf("  records into comparative statistics.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  eobench [OPTIONS] COMMAND [ARGS...]\n\n")

	fmt.Printf("COMMANDS:\n")
	fmt.Printf("  probe-single      Probe one endpoint and print the result\n")
	fmt.Printf("  probe-batch       Probe a list of endpoints and write a CSV table\n")
	fmt.Printf("  run-scenario      Submit a scenario to a backend and track the job\n")
	fmt.Printf("  summarize-runs    Aggregate persisted run records into one table\n")
	fmt.Printf("  summarize-probes  Compute statistics over timing tables\n\n")

	fmt.Printf("GLOBAL OPTIONS:\n")
	fmt.Printf("  -h, --help         Show this help message\n")
	fmt.Printf("  -V, --version      Show version\n")
	fmt.Printf("  -d, --debug        Enable debug output\n")
	fmt.Printf("  -v, --verbose      Enable verbose output (alias for --debug)\n\n")

	fmt.Printf("CONFIGURATION:\n")
	fmt.Printf("  Config file: ~/.eobench.yaml (override with EOBENCH_CONFIG)\n")
	fmt.Printf("  Environment: EOBENCH_OUTPUT_DIR, EOBENCH_RECORDS_DIR, EOBENCH_LOG_LEVEL,\n")
	fmt.Printf("               EOBENCH_POLL_BUDGET, EOBENCH_POLL_INTERVAL\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # Probe one backend's capability document\n")
	fmt.Printf("  eobench probe-single --url https://openeo.vito.be/openeo/1.1\n\n")

	fmt.Printf("  # Probe every configured endpoint\n")
	fmt.Printf("  eobench probe-batch --endpoints endpoints.yaml\n\n")

	fmt.Printf("  # Run a scenario against a backend with a 15 minute budget\n")
	fmt.Printf("  eobench run-scenario --api https://openeo.vito.be/openeo/1.1 \\\n")
	fmt.Printf("      --scenario ndvi.json --budget 15m\n\n")

	fmt.Printf("  # Compare all persisted runs\n")
	fmt.Printf("  eobench summarize-runs --format table\n\n")

	fmt.Printf("  # Latency statistics over this month's probe tables\n")
	fmt.Printf("  eobench summarize-probes results/\n\n")

	fmt.Printf("For command-specific help:\n")
	fmt.Printf("  eobench COMMAND --help\n")
}
