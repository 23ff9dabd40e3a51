// Command pipeline runs one batch pass of the sales data pipeline: clean the
// input workbooks, merge with the persisted dataset, and write the report
// artifacts.
//
// Exit codes are a contract with wrapping scripts: 0 the run completed,
// 2 the run was skipped (no input files, or no valid data after cleaning),
// 1 the run failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"salescli/internal/auth"
	"salescli/internal/config"
	"salescli/internal/events"
	"salescli/internal/infrastructure"
	"salescli/internal/pipeline"
)

const (
	exitCompleted = 0
	exitFailed    = 1
	exitSkipped   = 2
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $SALES_CONFIG, then ./config.yaml)")
	dryRun := flag.Bool("dry-run", true, "log notification emails instead of sending them")
	headless := flag.Bool("headless", false, "never open generated artifacts")
	flag.Parse()

	dryRunSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dry-run" {
			dryRunSet = true
		}
	})

	os.Exit(run(*configPath, *dryRun, dryRunSet, *headless))
}

// run executes the pipeline and returns the process exit code. Split from
// main so tests can drive the whole sequence without spawning a process.
func run(configPath string, dryRun, dryRunSet, headless bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return exitFailed
	}
	// The flag only overrides the configured notification mode when given
	// explicitly; otherwise the config file decides.
	if dryRunSet {
		cfg.Notify.DryRun = dryRun
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return exitFailed
	}
	defer infrastructure.CloseLogFile()

	eventLog, err := events.NewLog(cfg.Logging.EventsPath, logger)
	if err != nil {
		infrastructure.WithError(logger, err).Error("Failed to open event log")
		return exitFailed
	}
	defer eventLog.Close()

	directory, err := auth.LoadOrDefault(cfg.Auth.UsersFile)
	if err != nil {
		infrastructure.WithError(logger, err).Error("Failed to load user directory")
		return exitFailed
	}

	ctx := infrastructure.ContextWithRunID(context.Background())
	logger.InfoContext(ctx, "Starting sales pipeline",
		slog.String("input_dir", cfg.Paths.InputDir),
		slog.String("output_dir", cfg.Paths.OutputDir),
		slog.String("actor", cfg.Auth.Actor),
		slog.Bool("dry_run", cfg.Notify.DryRun),
		slog.Bool("headless", headless))

	runner := pipeline.NewRunner(cfg, directory, eventLog,
		infrastructure.WithComponent(logger, "pipeline"))
	result, err := runner.Run(ctx)
	printSummary(cfg, eventLog, result, err)
	return exitCode(result)
}

// printSummary writes the operator-facing run summary to the console; the
// structured log carries the full detail.
func printSummary(cfg *config.Config, eventLog *events.Log, result *pipeline.Result, runErr error) {
	switch result.Status {
	case pipeline.StatusCompleted:
		fmt.Println("Cleaned data written to:", result.CleanedPath)
		fmt.Println("Summary report written to:", result.ReportPath)
	case pipeline.StatusSkipped:
		if result.Reason == pipeline.ReasonNoInputFiles {
			fmt.Println("No Excel files found.")
		} else {
			fmt.Println("No valid data after cleaning; nothing to report.")
		}
	case pipeline.StatusFailed:
		fmt.Fprintln(os.Stderr, "Pipeline failed:", runErr)
	}

	if len(result.Issues) > 0 {
		fmt.Printf("Data quality issues: %d (see %s in %s)\n",
			len(result.Issues), "data_quality_issues.csv", cfg.Paths.OutputDir)
	}
	fmt.Println("Event log:", cfg.Logging.EventsPath)
	if event, ok := eventLog.Last(); ok {
		fmt.Printf("Last event: %s (%s)\n", event.Type, event.Level)
	}
}

// exitCode maps the terminal run state to the documented exit contract.
func exitCode(result *pipeline.Result) int {
	switch result.Status {
	case pipeline.StatusCompleted:
		return exitCompleted
	case pipeline.StatusSkipped:
		return exitSkipped
	default:
		return exitFailed
	}
}
